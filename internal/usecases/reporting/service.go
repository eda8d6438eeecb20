package reporting

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/amazonclient"
	adsdomain "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/domain"
	"github.com/buffapp/amazon-ads-api/infrastructure/repository"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
)

// Limite de tentativas de submissão antes de desistir por rate limit ou
// erro transiente
const maxSubmitAttempts = 5

// CredentialSource fornece access tokens válidos por conexão. Implementado
// pelo vault de credenciais
type CredentialSource interface {
	EnsureFresh(ctx context.Context, connectionID string) (string, error)
	Refresh(ctx context.Context, connectionID string) (string, error)
}

// ArtifactStore persiste o conteúdo descomprimido de um relatório concluído
// e devolve a localização do artefato
type ArtifactStore interface {
	Save(ctx context.Context, job *domain.ReportJob, content io.Reader) (string, error)
}

// ReportService orquestra o ciclo de vida completo de um relatório
// assíncrono: submissão, polling até estado terminal e download do artefato
type ReportService interface {
	Submit(ctx context.Context, connectionID string, raw RawReportConfig) (*domain.ReportJob, error)
	PollUntilTerminal(ctx context.Context, reportID string) (*domain.ReportJob, error)
	FetchArtifact(ctx context.Context, reportID string) (string, error)
	GetJob(ctx context.Context, reportID string) (*domain.ReportJob, error)
}

type reportService struct {
	client    amazonclient.Client
	creds     CredentialSource
	jobRepo   repository.ReportJobRepository
	connRepo  repository.ConnectionRepository
	backoff   *BackoffManager
	artifacts ArtifactStore

	pollMaxWait time.Duration
	dedupWindow time.Duration
}

func NewReportService(
	client amazonclient.Client,
	creds CredentialSource,
	jobRepo repository.ReportJobRepository,
	connRepo repository.ConnectionRepository,
	backoff *BackoffManager,
	artifacts ArtifactStore,
	cfg config.ReportPoller,
) ReportService {
	return &reportService{
		client:      client,
		creds:       creds,
		jobRepo:     jobRepo,
		connRepo:    connRepo,
		backoff:     backoff,
		artifacts:   artifacts,
		pollMaxWait: cfg.MaxWait,
		dedupWindow: cfg.DedupWindow,
	}
}

// Submit valida a configuração, deduplica contra jobs vivos recentes e
// submete o pedido para a Amazon. Configuração inválida falha antes de
// qualquer chamada de rede
func (s *reportService) Submit(ctx context.Context, connectionID string, raw RawReportConfig) (*domain.ReportJob, error) {
	cfg, err := BuildReportConfig(raw)
	if err != nil {
		return nil, err
	}

	configHash := cfg.Hash()

	// Deduplicação local: um job vivo com a mesma configuração canônica
	// dentro da janela é reaproveitado sem nova submissão
	since := time.Now().Add(-s.dedupWindow)
	existing, err := s.jobRepo.GetByConfigHash(ctx, connectionID, configHash, since)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logrus.WithFields(logrus.Fields{
			"connection_id": connectionID,
			"report_id":     existing.ReportID,
			"config_hash":   configHash,
		}).Info("Job existente reaproveitado pela deduplicação local")
		return existing, nil
	}

	conn, err := s.connection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.creds.EnsureFresh(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	policy := s.backoff.ForConnection(connectionID)
	refreshed := false

	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		if err := sleepCtx(ctx, policy.NextDelay(attempt)); err != nil {
			return nil, err
		}

		if err := policy.Wait(ctx); err != nil {
			return nil, err
		}

		response, err := s.client.CreateReport(ctx, conn.ProfileID, accessToken, cfg.ToRequest())
		if err == nil {
			policy.Reset()
			job := s.newJob(connectionID, configHash, cfg, response)
			if err := s.jobRepo.Upsert(ctx, job); err != nil {
				return nil, err
			}
			return job, nil
		}

		if duplicate, ok := adsdomain.IsDuplicateReport(err); ok {
			// A Amazon já conhece essa configuração: adotar o relatório
			// existente em vez de falhar
			return s.adoptDuplicate(ctx, conn, accessToken, connectionID, configHash, cfg, duplicate)
		}

		if rateErr, ok := adsdomain.IsRateLimited(err); ok {
			policy.RegisterRateLimit(rateErr.RetryAfter)
			logrus.WithFields(logrus.Fields{
				"connection_id": connectionID,
				"attempt":       attempt,
			}).Warn("Submissão limitada pela API, aguardando para tentar novamente")
			continue
		}

		if adsdomain.IsUnauthorized(err) {
			if refreshed {
				return nil, fmt.Errorf("%w: %s", ErrAuth, err.Error())
			}
			refreshed = true
			accessToken, err = s.creds.Refresh(ctx, connectionID)
			if err != nil {
				return nil, err
			}
			continue
		}

		if adsdomain.IsTransient(err) {
			logrus.WithFields(logrus.Fields{
				"connection_id": connectionID,
				"attempt":       attempt,
			}).Warn("Erro transiente na submissão: ", err)
			continue
		}

		return nil, err
	}

	return nil, fmt.Errorf("%w: submissão abandonada após %d tentativas", ErrRateLimited, maxSubmitAttempts)
}

// adoptDuplicate resolve uma resposta 425 consultando o estado do relatório
// que a Amazon apontou como duplicado e persistindo-o como job local
func (s *reportService) adoptDuplicate(
	ctx context.Context,
	conn *domain.Connection,
	accessToken, connectionID, configHash string,
	cfg ReportConfig,
	duplicate *adsdomain.DuplicateReportError,
) (*domain.ReportJob, error) {
	if duplicate.ExistingReportID == "" {
		return nil, fmt.Errorf("resposta de duplicidade sem id do relatório existente: %w", duplicate)
	}

	logrus.WithFields(logrus.Fields{
		"connection_id": connectionID,
		"report_id":     duplicate.ExistingReportID,
	}).Info("Relatório duplicado na API, adotando o existente")

	response, err := s.client.GetReportStatus(ctx, conn.ProfileID, accessToken, duplicate.ExistingReportID)
	if err != nil {
		return nil, err
	}

	job := s.newJob(connectionID, configHash, cfg, response)
	if err := s.jobRepo.Upsert(ctx, job); err != nil {
		return nil, err
	}

	return job, nil
}

// PollUntilTerminal consulta o estado do relatório até um estado terminal,
// persistindo cada transição antes de prosseguir. Respeita o prazo máximo
// contado a partir da criação do job: estourado, o job vira TIMED_OUT
func (s *reportService) PollUntilTerminal(ctx context.Context, reportID string) (*domain.ReportJob, error) {
	job, err := s.jobRepo.GetByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job de relatório não encontrado: %s", reportID)
	}

	if job.Status.IsTerminal() {
		return job, nil
	}

	conn, err := s.connection(ctx, job.ConnectionID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.creds.EnsureFresh(ctx, job.ConnectionID)
	if err != nil {
		return nil, err
	}

	policy := s.backoff.ForConnection(job.ConnectionID)
	deadline := job.CreatedAt.Add(s.pollMaxWait)
	refreshed := false

	for attempt := 0; ; attempt++ {
		if time.Now().After(deadline) {
			return s.markTimedOut(ctx, job)
		}

		if err := sleepCtx(ctx, policy.NextDelay(attempt)); err != nil {
			return nil, err
		}

		if err := policy.Wait(ctx); err != nil {
			return nil, err
		}

		response, err := s.client.GetReportStatus(ctx, conn.ProfileID, accessToken, reportID)
		if err != nil {
			if rateErr, ok := adsdomain.IsRateLimited(err); ok {
				policy.RegisterRateLimit(rateErr.RetryAfter)
				continue
			}

			if adsdomain.IsUnauthorized(err) {
				if refreshed {
					return nil, fmt.Errorf("%w: %s", ErrAuth, err.Error())
				}
				refreshed = true
				accessToken, err = s.creds.Refresh(ctx, job.ConnectionID)
				if err != nil {
					return nil, err
				}
				continue
			}

			if adsdomain.IsTransient(err) {
				logrus.WithFields(logrus.Fields{
					"report_id": reportID,
					"attempt":   attempt,
				}).Warn("Erro transiente no polling: ", err)
				continue
			}

			return nil, err
		}

		applySnapshot(job, response)

		// A transição é persistida antes de qualquer outra ação: um restart
		// retoma do último estado observado
		if err := s.jobRepo.Upsert(ctx, job); err != nil {
			return nil, err
		}

		if job.Status.IsTerminal() {
			policy.Reset()
			logrus.WithFields(logrus.Fields{
				"report_id": reportID,
				"status":    job.Status,
			}).Info("Relatório atingiu estado terminal")
			return job, nil
		}
	}
}

func (s *reportService) markTimedOut(ctx context.Context, job *domain.ReportJob) (*domain.ReportJob, error) {
	reason := fmt.Sprintf("prazo de polling de %s excedido", s.pollMaxWait)
	job.Status = domain.ReportStatusTimedOut
	job.FailureReason = &reason

	if err := s.jobRepo.Upsert(ctx, job); err != nil {
		return nil, err
	}

	logrus.WithField("report_id", job.ReportID).Warn("Relatório expirado por prazo de polling")

	return job, fmt.Errorf("%w: relatório %s", ErrTimedOut, job.ReportID)
}

// FetchArtifact baixa o artefato de um relatório concluído, descomprime o
// stream e o entrega ao armazenamento de artefatos. Retorna a localização
// final do conteúdo
func (s *reportService) FetchArtifact(ctx context.Context, reportID string) (string, error) {
	job, err := s.jobRepo.GetByReportID(ctx, reportID)
	if err != nil {
		return "", err
	}
	if job == nil {
		return "", fmt.Errorf("job de relatório não encontrado: %s", reportID)
	}

	if !job.DownloadableAt(time.Now()) {
		return "", NewArtifactError(reportID, "relatório não concluído ou URL de download expirada")
	}

	body, err := s.client.DownloadReport(ctx, *job.URL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	// O artefato chega comprimido, o conteúdo é descomprimido em streaming
	gz, err := gzip.NewReader(body)
	if err != nil {
		return "", NewArtifactError(reportID, "conteúdo do artefato não é gzip válido")
	}
	defer gz.Close()

	location, err := s.artifacts.Save(ctx, job, gz)
	if err != nil {
		return "", err
	}

	if err := s.jobRepo.SetArtifactLocation(ctx, reportID, location); err != nil {
		return "", err
	}

	job.ArtifactLocation = &location

	logrus.WithFields(logrus.Fields{
		"report_id": reportID,
		"location":  location,
	}).Info("Artefato do relatório armazenado")

	return location, nil
}

func (s *reportService) GetJob(ctx context.Context, reportID string) (*domain.ReportJob, error) {
	job, err := s.jobRepo.GetByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job de relatório não encontrado: %s", reportID)
	}
	return job, nil
}

func (s *reportService) connection(ctx context.Context, connectionID string) (*domain.Connection, error) {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("conexão não encontrada: %s", connectionID)
	}
	return conn, nil
}

func (s *reportService) newJob(connectionID, configHash string, cfg ReportConfig, response *adsdomain.ReportResponse) *domain.ReportJob {
	job := &domain.ReportJob{
		ReportID:     response.ReportID,
		ConnectionID: connectionID,
		ConfigHash:   configHash,
		AdProduct:    cfg.AdProduct,
		TimeUnit:     cfg.TimeUnit,
		CreatedAt:    time.Now(),
	}
	applySnapshot(job, response)
	return job
}

// applySnapshot projeta a resposta da API sobre o job local, sem jamais
// regredir o status já alcançado
func applySnapshot(job *domain.ReportJob, response *adsdomain.ReportResponse) {
	status := domain.ReportStatus(response.Status)
	if status.Rank() >= job.Status.Rank() {
		job.Status = status
	}

	if response.FailureReason != nil {
		job.FailureReason = response.FailureReason
	}
	if response.URL != nil {
		job.URL = response.URL
	}
	if response.URLExpiresAt != nil {
		job.URLExpiresAt = response.URLExpiresAt
	}
	if response.GeneratedAt != nil {
		job.GeneratedAt = response.GeneratedAt
	}
	job.UpdatedAt = time.Now()
}

// sleepCtx aguarda a duração informada ou o cancelamento do contexto
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
