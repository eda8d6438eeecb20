package amazonclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	adsdomain "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/domain"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	createReportContentType = "application/vnd.createasyncreportrequest.v3+json"
)

// CreateReport submete um pedido de relatório assíncrono para o profile
// informado. Respostas 425 viram DuplicateReportError com o id existente
func (c *AmazonClient) CreateReport(ctx context.Context, profileID, accessToken string, request *adsdomain.ReportRequest) (*adsdomain.ReportResponse, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao serializar o pedido de relatório")
	}

	url := fmt.Sprintf("%s/reporting/reports", c.Cfg.AmazonAds.APIHost)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "erro ao criar a requisição")
	}

	c.setReportingHeaders(req, profileID, accessToken)
	req.Header.Set("Content-Type", createReportContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &adsdomain.APIError{StatusCode: 0, Body: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	body, err := c.handleResponse(resp)
	if err != nil {
		return nil, err
	}

	var report adsdomain.ReportResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, errors.Wrap(err, "erro ao decodificar resposta de criação de relatório")
	}

	logrus.WithFields(logrus.Fields{
		"profile_id": profileID,
		"report_id":  report.ReportID,
		"status":     report.Status,
	}).Info("Relatório criado na Amazon Ads API")

	return &report, nil
}

// GetReportStatus consulta o estado atual de um relatório já submetido
func (c *AmazonClient) GetReportStatus(ctx context.Context, profileID, accessToken, reportID string) (*adsdomain.ReportResponse, error) {
	url := fmt.Sprintf("%s/reporting/reports/%s", c.Cfg.AmazonAds.APIHost, reportID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao criar a requisição")
	}

	c.setReportingHeaders(req, profileID, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &adsdomain.APIError{StatusCode: 0, Body: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	body, err := c.handleResponse(resp)
	if err != nil {
		return nil, err
	}

	var report adsdomain.ReportResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, errors.Wrap(err, "erro ao decodificar status do relatório")
	}

	return &report, nil
}

// DownloadReport abre um stream do artefato a partir da URL pré-assinada.
// O chamador é responsável por fechar o ReadCloser retornado. O conteúdo
// não é bufferizado em memória, relatórios grandes são lidos sob demanda
func (c *AmazonClient) DownloadReport(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao criar a requisição")
	}

	// A URL pré-assinada já carrega a autorização, sem headers adicionais
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &adsdomain.APIError{StatusCode: 0, Body: err.Error(), Transient: true}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &adsdomain.APIError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Transient:  resp.StatusCode >= 500,
		}
	}

	return resp.Body, nil
}

func (c *AmazonClient) setReportingHeaders(req *http.Request, profileID, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Amazon-Advertising-API-ClientId", c.Cfg.AmazonAds.ClientID)
	req.Header.Set("Amazon-Advertising-API-Scope", profileID)
	req.Header.Set("Accept", "application/json")
}
