package amazonclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	adsdomain "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/domain"
	"github.com/buffapp/amazon-ads-api/internal/config"
)

// Client expõe as chamadas brutas da Amazon Ads API usadas pelo orquestrador
// de relatórios e pelo vault de credenciais
type Client interface {
	CreateReport(ctx context.Context, profileID, accessToken string, request *adsdomain.ReportRequest) (*adsdomain.ReportResponse, error)
	GetReportStatus(ctx context.Context, profileID, accessToken, reportID string) (*adsdomain.ReportResponse, error)
	DownloadReport(ctx context.Context, url string) (io.ReadCloser, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*adsdomain.TokenResponse, error)
	ExchangeAuthorizationCode(ctx context.Context, code string) (*adsdomain.TokenResponse, error)
	GetProfiles(ctx context.Context, accessToken string) ([]adsdomain.Profile, error)
}

type AmazonClient struct {
	Cfg        *config.Config
	httpClient *http.Client
}

func NewClient(cfg *config.Config) Client {
	return &AmazonClient{
		Cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// handleResponse lê o corpo e converte respostas de erro nos tipos do
// pacote domain, que o orquestrador sabe interpretar
func (c *AmazonClient) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &adsdomain.APIError{StatusCode: resp.StatusCode, Body: "erro ao ler resposta", Transient: true}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &adsdomain.UnauthorizedError{Body: string(body)}
	case resp.StatusCode == http.StatusTooEarly:
		return nil, &adsdomain.DuplicateReportError{ExistingReportID: extractDuplicateReportID(body)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &adsdomain.RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, &adsdomain.APIError{StatusCode: resp.StatusCode, Body: string(body), Transient: true}
	default:
		return nil, &adsdomain.APIError{StatusCode: resp.StatusCode, Body: string(body), Transient: false}
	}
}

// extractDuplicateReportID obtém o id do relatório existente no corpo de uma
// resposta 425. A API informa o id no campo detail, após o último ":"
func extractDuplicateReportID(body []byte) string {
	var payload struct {
		ReportID string `json:"reportId"`
		Detail   string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if payload.ReportID != "" {
		return payload.ReportID
	}

	if idx := strings.LastIndex(payload.Detail, ":"); idx >= 0 {
		return strings.TrimSpace(payload.Detail[idx+1:])
	}

	return ""
}

// parseRetryAfter interpreta o header Retry-After em segundos
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
