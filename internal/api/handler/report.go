package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/buffapp/amazon-ads-api/internal/usecases/reporting"
	"github.com/buffapp/amazon-ads-api/pkg/apiErrors"
)

type SubmitReportRequest struct {
	ConnectionID string                    `json:"connection_id"`
	Config       reporting.RawReportConfig `json:"config"`
}

// SubmitReport valida e submete um pedido de relatório assíncrono
func SubmitReport(service reporting.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitReportRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Formato de requisição inválido", nil)
			return
		}

		if req.ConnectionID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "connection_id é obrigatório", nil)
			return
		}

		job, err := service.Submit(r.Context(), req.ConnectionID, req.Config)
		if err != nil {
			handleReportError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(job)
	}
}

// GetReport retorna o estado atual de um job de relatório
func GetReport(service reporting.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := httprouter.ParamsFromContext(r.Context()).ByName("id")
		if reportID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "ID do relatório não informado", nil)
			return
		}

		job, err := service.GetJob(r.Context(), reportID)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrReportNotFound, "Relatório não encontrado", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(job)
	}
}

// FetchReportArtifact baixa o artefato de um relatório concluído para o
// storage e retorna a localização
func FetchReportArtifact(service reporting.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := httprouter.ParamsFromContext(r.Context()).ByName("id")
		if reportID == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "ID do relatório não informado", nil)
			return
		}

		location, err := service.FetchArtifact(r.Context(), reportID)
		if err != nil {
			handleReportError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"artifact_location": location,
		})
	}
}

// handleReportError traduz os erros do orquestrador para a resposta da API
func handleReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reporting.ErrValidation):
		apiErrors.WriteError(w, apiErrors.ErrInvalidReportConfig, err.Error(), nil)

	case errors.Is(err, reporting.ErrRateLimited):
		apiErrors.WriteError(w, apiErrors.ErrReportRateLimited, "Limite de requisições da Amazon excedido", nil)

	case errors.Is(err, reporting.ErrTimedOut):
		apiErrors.WriteError(w, apiErrors.ErrReportTimedOut, "Prazo de acompanhamento do relatório excedido", nil)

	case errors.Is(err, reporting.ErrAuth):
		apiErrors.WriteError(w, apiErrors.ErrAmazonAuthRejected, "Credenciais da conexão rejeitadas pela Amazon", nil)

	case errors.Is(err, reporting.ErrArtifact):
		apiErrors.WriteError(w, apiErrors.ErrArtifactUnavailable, err.Error(), nil)

	default:
		logrus.WithError(err).Error("Erro inesperado no orquestrador de relatórios")
		apiErrors.WriteError(w, apiErrors.ErrExternalService, "Erro ao comunicar com a Amazon Ads", nil)
	}
}
