package connecting

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/amazonclient"
	"github.com/buffapp/amazon-ads-api/infrastructure/repository"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
	"github.com/buffapp/amazon-ads-api/pkg/utils"
)

// Escopo exigido para a Amazon Ads API
const oauthScope = "advertising::campaign_management"

// TokenVault criptografa tokens antes da persistência. Implementado pelo
// vault de credenciais
type TokenVault interface {
	Encrypt(plaintext string) (string, error)
}

// Connector gerencia o ciclo de vida das conexões de contas Amazon Ads:
// autorização OAuth, persistência dos profiles e desconexão
type Connector interface {
	AuthorizationURL(state string) string
	CompleteConnection(ctx context.Context, userID, code string) ([]*domain.Connection, error)
	ListConnections(ctx context.Context, userID string) ([]*domain.Connection, error)
	Disconnect(ctx context.Context, userID, connectionID string) error
}

type Service struct {
	client   amazonclient.Client
	vault    TokenVault
	connRepo repository.ConnectionRepository
	cfg      *config.Config
}

func NewService(
	client amazonclient.Client,
	vault TokenVault,
	connRepo repository.ConnectionRepository,
	cfg *config.Config,
) Connector {
	return &Service{
		client:   client,
		vault:    vault,
		connRepo: connRepo,
		cfg:      cfg,
	}
}

// AuthorizationURL monta a URL de consentimento da Amazon para onde o
// usuário é redirecionado
func (s *Service) AuthorizationURL(state string) string {
	params := url.Values{}
	params.Set("client_id", s.cfg.AmazonAds.ClientID)
	params.Set("scope", oauthScope)
	params.Set("response_type", "code")
	params.Set("redirect_uri", s.cfg.AmazonAds.RedirectURI)
	params.Set("state", state)

	return fmt.Sprintf("%s?%s", s.cfg.AmazonAds.AuthHost, params.Encode())
}

// CompleteConnection troca o código de autorização por tokens, descobre os
// profiles da conta e persiste uma conexão por profile, com os tokens
// sempre criptografados
func (s *Service) CompleteConnection(ctx context.Context, userID, code string) ([]*domain.Connection, error) {
	token, err := s.client.ExchangeAuthorizationCode(ctx, code)
	if err != nil {
		return nil, err
	}

	profiles, err := s.client.GetProfiles(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}

	encryptedRefresh, err := s.vault.Encrypt(token.RefreshToken)
	if err != nil {
		return nil, err
	}

	encryptedAccess, err := s.vault.Encrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	connections := make([]*domain.Connection, 0, len(profiles))
	for _, profile := range profiles {
		id, err := utils.GenerateID()
		if err != nil {
			return nil, err
		}

		conn := &domain.Connection{
			ID:                    id,
			UserID:                userID,
			ProfileID:             strconv.FormatInt(profile.ProfileID, 10),
			CountryCode:           profile.CountryCode,
			CurrencyCode:          profile.CurrencyCode,
			MarketplaceID:         profile.AccountInfo.MarketplaceStringID,
			AccountName:           profile.AccountInfo.Name,
			AccountType:           profile.AccountInfo.Type,
			EncryptedRefreshToken: encryptedRefresh,
			EncryptedAccessToken:  encryptedAccess,
			TokenExpiresAt:        &expiresAt,
		}

		if err := s.connRepo.Save(ctx, conn); err != nil {
			return nil, err
		}

		connections = append(connections, conn)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"profiles": len(connections),
	}).Info("Conta Amazon Ads conectada")

	return connections, nil
}

func (s *Service) ListConnections(ctx context.Context, userID string) ([]*domain.Connection, error) {
	return s.connRepo.ListByUser(ctx, userID)
}

// Disconnect remove a conexão e seus tokens. Apenas o dono pode desconectar
func (s *Service) Disconnect(ctx context.Context, userID, connectionID string) error {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		return ErrConnectionNotFound
	}
	if conn.UserID != userID {
		return ErrNotOwner
	}

	if err := s.connRepo.Delete(ctx, connectionID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"connection_id": connectionID,
	}).Info("Conexão Amazon Ads removida")

	return nil
}
