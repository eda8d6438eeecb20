package amazonclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	adsdomain "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/domain"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RefreshAccessToken troca o refresh token por um novo access token no
// endpoint OAuth da Amazon
func (c *AmazonClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*adsdomain.TokenResponse, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token não pode ser vazio")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.Cfg.AmazonAds.ClientID)
	form.Set("client_secret", c.Cfg.AmazonAds.ClientSecret)

	return c.requestToken(ctx, form)
}

// ExchangeAuthorizationCode troca o código de autorização do fluxo OAuth
// pelos tokens iniciais da conexão
func (c *AmazonClient) ExchangeAuthorizationCode(ctx context.Context, code string) (*adsdomain.TokenResponse, error) {
	if code == "" {
		return nil, errors.New("código de autorização não pode ser vazio")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.Cfg.AmazonAds.RedirectURI)
	form.Set("client_id", c.Cfg.AmazonAds.ClientID)
	form.Set("client_secret", c.Cfg.AmazonAds.ClientSecret)

	return c.requestToken(ctx, form)
}

func (c *AmazonClient) requestToken(ctx context.Context, form url.Values) (*adsdomain.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Cfg.AmazonAds.TokenHost, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "erro ao criar a requisição")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &adsdomain.APIError{StatusCode: 0, Body: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	body, err := c.handleResponse(resp)
	if err != nil {
		return nil, err
	}

	var token adsdomain.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, errors.Wrap(err, "erro ao decodificar resposta de token")
	}

	if token.AccessToken == "" {
		return nil, errors.New("token retornado pela API é vazio")
	}

	logrus.WithField("expires_in", token.ExpiresIn).Info("Token de acesso obtido com sucesso")

	return &token, nil
}

// GetProfiles lista os perfis de anunciante acessíveis com o access token
func (c *AmazonClient) GetProfiles(ctx context.Context, accessToken string) ([]adsdomain.Profile, error) {
	url := fmt.Sprintf("%s/v2/profiles", c.Cfg.AmazonAds.APIHost)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao criar a requisição")
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Amazon-Advertising-API-ClientId", c.Cfg.AmazonAds.ClientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &adsdomain.APIError{StatusCode: 0, Body: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	body, err := c.handleResponse(resp)
	if err != nil {
		return nil, err
	}

	var profiles []adsdomain.Profile
	if err := json.Unmarshal(body, &profiles); err != nil {
		return nil, errors.Wrap(err, "erro ao decodificar lista de perfis")
	}

	logrus.Infof("Obtidos %d perfis da Amazon Ads API", len(profiles))

	return profiles, nil
}
