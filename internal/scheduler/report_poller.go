package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/buffapp/amazon-ads-api/infrastructure/repository"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
	"github.com/buffapp/amazon-ads-api/internal/usecases/reporting"
)

// ReportPollerConfig representa a configuração do processador de relatórios pendentes
type ReportPollerConfig struct {
	CronSchedule      string
	MaxConcurrentJobs int
	BatchLimit        int
	Enabled           bool
}

// ReportPollerService varre periodicamente os jobs de relatório não terminais
// e os conduz até um estado terminal, baixando o artefato dos concluídos
type ReportPollerService struct {
	scheduler      *gocron.Scheduler
	config         ReportPollerConfig
	jobRepo        repository.ReportJobRepository
	reportService  reporting.ReportService
	sweepRunning   bool
	sweepMutex     sync.Mutex
	lastSweepStart time.Time

	// Jobs com polling em andamento, por report_id. Garante que duas
	// varreduras consecutivas não acompanhem o mesmo relatório
	inFlight      map[string]struct{}
	inFlightMutex sync.Mutex
}

// NewReportPollerService cria uma nova instância do processador de relatórios pendentes
func NewReportPollerService(
	jobRepo repository.ReportJobRepository,
	reportService reporting.ReportService,
	appConfig *config.Config,
) *ReportPollerService {
	pollerConfig := ReportPollerConfig{
		CronSchedule:      appConfig.ReportPoller.CronSchedule,
		MaxConcurrentJobs: appConfig.ReportPoller.MaxConcurrentJobs,
		BatchLimit:        appConfig.ReportPoller.BatchLimit,
		Enabled:           appConfig.ReportPoller.Enabled,
	}

	scheduler := gocron.NewScheduler(time.Local)

	logrus.WithFields(logrus.Fields{
		"cron_schedule":       pollerConfig.CronSchedule,
		"max_concurrent_jobs": pollerConfig.MaxConcurrentJobs,
		"batch_limit":         pollerConfig.BatchLimit,
		"enabled":             pollerConfig.Enabled,
	}).Info("Configuração do processador de relatórios pendentes carregada")

	return &ReportPollerService{
		scheduler:     scheduler,
		config:        pollerConfig,
		jobRepo:       jobRepo,
		reportService: reportService,
		inFlight:      make(map[string]struct{}),
	}
}

// Start inicia o agendador
func (s *ReportPollerService) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logrus.Info("Processador de relatórios pendentes desabilitado por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando processador de relatórios pendentes")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.sweepPendingReports(ctx)
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar o processador de relatórios pendentes: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando processador de relatórios pendentes")
		s.scheduler.Stop()
	}()

	return nil
}

// sweepPendingReports busca os jobs não terminais e acompanha cada um até o
// estado terminal, com concorrência limitada
func (s *ReportPollerService) sweepPendingReports(ctx context.Context) {
	s.sweepMutex.Lock()
	if s.sweepRunning {
		s.sweepMutex.Unlock()
		logrus.Info("Varredura de relatórios pendentes já em andamento, ignorando")
		return
	}
	startTime := time.Now()
	s.sweepRunning = true
	s.lastSweepStart = startTime
	s.sweepMutex.Unlock()

	defer func() {
		s.sweepMutex.Lock()
		s.sweepRunning = false
		s.sweepMutex.Unlock()
	}()

	jobs, err := s.jobRepo.ListUnfinished(ctx, s.config.BatchLimit)
	if err != nil {
		logrus.WithError(err).Error("Erro ao listar relatórios pendentes")
		return
	}

	if len(jobs) == 0 {
		logrus.Info("Nenhum relatório pendente para acompanhar")
		return
	}

	logrus.WithField("jobs", len(jobs)).Info("Iniciando varredura de relatórios pendentes")

	s.processJobs(ctx, jobs)

	logrus.WithFields(logrus.Fields{
		"duration": time.Since(startTime).String(),
		"jobs":     len(jobs),
	}).Info("Varredura de relatórios pendentes concluída")
}

func (s *ReportPollerService) processJobs(ctx context.Context, jobs []*domain.ReportJob) {
	// Canal para controlar o número de workers concorrentes
	semaphore := make(chan struct{}, s.config.MaxConcurrentJobs)
	var wg sync.WaitGroup

	for _, job := range jobs {
		if !s.claim(job.ReportID) {
			logrus.WithField("report_id", job.ReportID).Debug("Relatório já em acompanhamento, pulando")
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{} // Adquirir semáforo

		go func(reportID string) {
			defer func() {
				s.release(reportID)
				<-semaphore // Liberar semáforo
				wg.Done()
			}()

			s.processJob(ctx, reportID)
		}(job.ReportID)
	}

	wg.Wait()
}

// processJob conduz um único relatório até o estado terminal e baixa o
// artefato quando concluído
func (s *ReportPollerService) processJob(ctx context.Context, reportID string) {
	job, err := s.reportService.PollUntilTerminal(ctx, reportID)
	if err != nil {
		if errors.Is(err, reporting.ErrTimedOut) {
			logrus.WithField("report_id", reportID).Warn("Relatório expirou o prazo de polling")
			return
		}
		logrus.WithError(err).WithField("report_id", reportID).Error("Erro ao acompanhar relatório")
		return
	}

	if job.Status != domain.ReportStatusCompleted {
		logrus.WithFields(logrus.Fields{
			"report_id": reportID,
			"status":    job.Status,
		}).Info("Relatório terminou sem artefato para baixar")
		return
	}

	if job.ArtifactLocation != nil {
		return
	}

	if _, err := s.reportService.FetchArtifact(ctx, reportID); err != nil {
		logrus.WithError(err).WithField("report_id", reportID).Error("Erro ao baixar artefato do relatório")
	}
}

// TriggerManualSweep dispara uma varredura fora do agendamento
func (s *ReportPollerService) TriggerManualSweep() {
	go s.sweepPendingReports(context.Background())
}

// GetStatus retorna o estado atual do processador
func (s *ReportPollerService) GetStatus() map[string]any {
	s.sweepMutex.Lock()
	running := s.sweepRunning
	lastStart := s.lastSweepStart
	s.sweepMutex.Unlock()

	s.inFlightMutex.Lock()
	inFlight := len(s.inFlight)
	s.inFlightMutex.Unlock()

	status := map[string]any{
		"enabled":        s.config.Enabled,
		"cron_schedule":  s.config.CronSchedule,
		"sweep_running":  running,
		"jobs_in_flight": inFlight,
	}

	if !lastStart.IsZero() {
		status["last_sweep_started_at"] = lastStart.Format(time.RFC3339)
	}

	return status
}

func (s *ReportPollerService) claim(reportID string) bool {
	s.inFlightMutex.Lock()
	defer s.inFlightMutex.Unlock()

	if _, ok := s.inFlight[reportID]; ok {
		return false
	}
	s.inFlight[reportID] = struct{}{}
	return true
}

func (s *ReportPollerService) release(reportID string) {
	s.inFlightMutex.Lock()
	defer s.inFlightMutex.Unlock()
	delete(s.inFlight, reportID)
}
