package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/buffapp/amazon-ads-api/internal/scheduler"
	"github.com/buffapp/amazon-ads-api/pkg/apiErrors"
)

// CronJobType define o tipo de cron job que será executada
const (
	CronJobTypeReportPoller = "report-poller"
)

// CronJobServices contém os serviços de cron necessários para executar manualmente
type CronJobServices struct {
	ReportPollerService *scheduler.ReportPollerService
}

// RunCronJob executa manualmente uma cron job específica
func RunCronJob(services CronJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - RunCronJob")

		cronType := httprouter.ParamsFromContext(r.Context()).ByName("type")
		if cronType == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Tipo de cron job não especificado", nil)
			return
		}

		switch cronType {
		case CronJobTypeReportPoller:
			if services.ReportPollerService == nil {
				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Processador de relatórios pendentes não disponível", nil)
				return
			}
			services.ReportPollerService.TriggerManualSweep()

		default:
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Tipo de cron job inválido. Valores aceitos: report-poller", nil)
			return
		}

		response := map[string]any{
			"message": "Cron job iniciada com sucesso",
			"type":    cronType,
		}
		json.NewEncoder(w).Encode(response)
	}
}

// GetCronStatus retorna o status das cron jobs
func GetCronStatus(services CronJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - GetCronStatus")

		status := map[string]any{
			"report-poller": services.ReportPollerService.GetStatus(),
		}

		json.NewEncoder(w).Encode(status)
	}
}
