package reporting

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	adsdomain "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/domain"
	clientmocks "github.com/buffapp/amazon-ads-api/infrastructure/integrator/amazonads/mocks"
	repomocks "github.com/buffapp/amazon-ads-api/infrastructure/repository/mocks"
	"github.com/buffapp/amazon-ads-api/internal/config"
	"github.com/buffapp/amazon-ads-api/internal/domain"
	reportingmocks "github.com/buffapp/amazon-ads-api/internal/usecases/reporting/mocks"
)

type serviceMocks struct {
	client    *clientmocks.MockClient
	creds     *reportingmocks.MockCredentialSource
	jobRepo   *repomocks.MockReportJobRepository
	connRepo  *repomocks.MockConnectionRepository
	artifacts *reportingmocks.MockArtifactStore
}

func newTestService(ctrl *gomock.Controller) (ReportService, *serviceMocks) {
	m := &serviceMocks{
		client:    clientmocks.NewMockClient(ctrl),
		creds:     reportingmocks.NewMockCredentialSource(ctrl),
		jobRepo:   repomocks.NewMockReportJobRepository(ctrl),
		connRepo:  repomocks.NewMockConnectionRepository(ctrl),
		artifacts: reportingmocks.NewMockArtifactStore(ctrl),
	}

	// Backoff curto para os testes não esperarem de verdade
	backoff := NewBackoffManager(config.Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		JitterRatio:  0,
		RatePerSec:   1000,
		RateBurst:    1000,
	})

	service := NewReportService(
		m.client,
		m.creds,
		m.jobRepo,
		m.connRepo,
		backoff,
		m.artifacts,
		config.ReportPoller{
			MaxWait:     3 * time.Hour,
			DedupWindow: 15 * time.Minute,
		},
	)

	return service, m
}

func testConnection() *domain.Connection {
	return &domain.Connection{
		ID:        "conn-1",
		UserID:    "user-1",
		ProfileID: "prof-1",
	}
}

func TestSubmit_CaminhoFeliz(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	m.jobRepo.EXPECT().
		GetByConfigHash(gomock.Any(), "conn-1", gomock.Any(), gomock.Any()).
		Return(nil, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("access-token", nil)

	m.client.EXPECT().
		CreateReport(gomock.Any(), "prof-1", "access-token", gomock.Any()).
		Return(&adsdomain.ReportResponse{ReportID: "rep-1", Status: "PENDING"}, nil)

	var persisted *domain.ReportJob
	m.jobRepo.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *domain.ReportJob) error {
			persisted = job
			return nil
		})

	job, err := service.Submit(context.Background(), "conn-1", validRawConfig())

	assert.NoError(t, err)
	assert.Equal(t, "rep-1", job.ReportID)
	assert.Equal(t, domain.ReportStatusPending, job.Status)
	assert.Equal(t, domain.AdProductSponsoredProducts, job.AdProduct)
	assert.NotEmpty(t, job.ConfigHash)

	// O job retornado é o mesmo persistido antes de devolver ao chamador
	assert.Same(t, persisted, job)
}

func TestSubmit_ConfiguracaoInvalidaNaoChamaARede(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Nenhuma expectativa registrada: qualquer chamada a um mock falha o teste
	service, _ := newTestService(ctrl)

	raw := validRawConfig()
	raw.EndDate = "2024-12-31" // Mais de 90 dias

	_, err := service.Submit(context.Background(), "conn-1", raw)

	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmit_DeduplicacaoLocalReaproveitaJobVivo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	existing := &domain.ReportJob{
		ReportID:     "rep-1",
		ConnectionID: "conn-1",
		Status:       domain.ReportStatusProcessing,
		CreatedAt:    time.Now().Add(-5 * time.Minute),
	}

	// Job vivo dentro da janela: nenhuma chamada de rede acontece
	m.jobRepo.EXPECT().
		GetByConfigHash(gomock.Any(), "conn-1", gomock.Any(), gomock.Any()).
		Return(existing, nil)

	job, err := service.Submit(context.Background(), "conn-1", validRawConfig())

	assert.NoError(t, err)
	assert.Same(t, existing, job)
}

func TestSubmit_DuplicidadeNaAPIAdotaORelatorioExistente(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	m.jobRepo.EXPECT().
		GetByConfigHash(gomock.Any(), "conn-1", gomock.Any(), gomock.Any()).
		Return(nil, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("access-token", nil)

	// A Amazon responde 425 apontando o relatório já existente
	m.client.EXPECT().
		CreateReport(gomock.Any(), "prof-1", "access-token", gomock.Any()).
		Return(nil, &adsdomain.DuplicateReportError{ExistingReportID: "rep-9"})

	m.client.EXPECT().
		GetReportStatus(gomock.Any(), "prof-1", "access-token", "rep-9").
		Return(&adsdomain.ReportResponse{ReportID: "rep-9", Status: "PROCESSING"}, nil)

	m.jobRepo.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		Return(nil)

	job, err := service.Submit(context.Background(), "conn-1", validRawConfig())

	assert.NoError(t, err)
	assert.Equal(t, "rep-9", job.ReportID)
	assert.Equal(t, domain.ReportStatusProcessing, job.Status)
}

func TestSubmit_RateLimitRespeitaRetryAfter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	m.jobRepo.EXPECT().
		GetByConfigHash(gomock.Any(), "conn-1", gomock.Any(), gomock.Any()).
		Return(nil, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("access-token", nil)

	retryAfter := 30 * time.Millisecond

	gomock.InOrder(
		m.client.EXPECT().
			CreateReport(gomock.Any(), "prof-1", "access-token", gomock.Any()).
			Return(nil, &adsdomain.RateLimitedError{RetryAfter: retryAfter}),
		m.client.EXPECT().
			CreateReport(gomock.Any(), "prof-1", "access-token", gomock.Any()).
			Return(&adsdomain.ReportResponse{ReportID: "rep-1", Status: "PENDING"}, nil),
	)

	m.jobRepo.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		Return(nil)

	start := time.Now()
	job, err := service.Submit(context.Background(), "conn-1", validRawConfig())
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Equal(t, "rep-1", job.ReportID)

	// O Retry-After informado pelo servidor é um piso, mesmo acima do teto
	// de backoff configurado
	assert.GreaterOrEqual(t, elapsed, retryAfter)
}

func TestSubmit_TokenRejeitadoRenovaUmaVez(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	m.jobRepo.EXPECT().
		GetByConfigHash(gomock.Any(), "conn-1", gomock.Any(), gomock.Any()).
		Return(nil, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("stale-token", nil)

	m.client.EXPECT().
		CreateReport(gomock.Any(), "prof-1", "stale-token", gomock.Any()).
		Return(nil, &adsdomain.UnauthorizedError{})

	m.creds.EXPECT().
		Refresh(gomock.Any(), "conn-1").
		Return("fresh-token", nil)

	m.client.EXPECT().
		CreateReport(gomock.Any(), "prof-1", "fresh-token", gomock.Any()).
		Return(&adsdomain.ReportResponse{ReportID: "rep-1", Status: "PENDING"}, nil)

	m.jobRepo.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		Return(nil)

	job, err := service.Submit(context.Background(), "conn-1", validRawConfig())

	assert.NoError(t, err)
	assert.Equal(t, "rep-1", job.ReportID)
}

func TestSubmit_SegundoTokenRejeitadoFalhaComErrAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	m.jobRepo.EXPECT().
		GetByConfigHash(gomock.Any(), "conn-1", gomock.Any(), gomock.Any()).
		Return(nil, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("stale-token", nil)

	// A renovação acontece uma única vez: o segundo 401 encerra a submissão
	m.client.EXPECT().
		CreateReport(gomock.Any(), "prof-1", gomock.Any(), gomock.Any()).
		Return(nil, &adsdomain.UnauthorizedError{}).
		Times(2)

	m.creds.EXPECT().
		Refresh(gomock.Any(), "conn-1").
		Return("fresh-token", nil).
		Times(1)

	_, err := service.Submit(context.Background(), "conn-1", validRawConfig())

	assert.ErrorIs(t, err, ErrAuth)
}

func TestSubmit_ErroTransienteEhRetentado(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	m.jobRepo.EXPECT().
		GetByConfigHash(gomock.Any(), "conn-1", gomock.Any(), gomock.Any()).
		Return(nil, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("access-token", nil)

	gomock.InOrder(
		m.client.EXPECT().
			CreateReport(gomock.Any(), "prof-1", "access-token", gomock.Any()).
			Return(nil, &adsdomain.APIError{StatusCode: 503, Transient: true}),
		m.client.EXPECT().
			CreateReport(gomock.Any(), "prof-1", "access-token", gomock.Any()).
			Return(&adsdomain.ReportResponse{ReportID: "rep-1", Status: "PENDING"}, nil),
	)

	m.jobRepo.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		Return(nil)

	_, err := service.Submit(context.Background(), "conn-1", validRawConfig())

	assert.NoError(t, err)
}

func TestSubmit_ErroFatalNaoEhRetentado(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	m.jobRepo.EXPECT().
		GetByConfigHash(gomock.Any(), "conn-1", gomock.Any(), gomock.Any()).
		Return(nil, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("access-token", nil)

	m.client.EXPECT().
		CreateReport(gomock.Any(), "prof-1", "access-token", gomock.Any()).
		Return(nil, &adsdomain.APIError{StatusCode: 400, Body: "bad request", Transient: false}).
		Times(1)

	_, err := service.Submit(context.Background(), "conn-1", validRawConfig())

	assert.Error(t, err)
}

func TestPollUntilTerminal_PersisteCadaTransicao(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	job := &domain.ReportJob{
		ReportID:     "rep-1",
		ConnectionID: "conn-1",
		Status:       domain.ReportStatusPending,
		CreatedAt:    time.Now(),
	}

	m.jobRepo.EXPECT().
		GetByReportID(gomock.Any(), "rep-1").
		Return(job, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("access-token", nil)

	url := "https://offline-report-storage.s3.amazonaws.com/rep-1.json.gz"
	expiresAt := time.Now().Add(time.Hour)

	gomock.InOrder(
		m.client.EXPECT().
			GetReportStatus(gomock.Any(), "prof-1", "access-token", "rep-1").
			Return(&adsdomain.ReportResponse{ReportID: "rep-1", Status: "PROCESSING"}, nil),
		m.client.EXPECT().
			GetReportStatus(gomock.Any(), "prof-1", "access-token", "rep-1").
			Return(&adsdomain.ReportResponse{
				ReportID:     "rep-1",
				Status:       "COMPLETED",
				URL:          &url,
				URLExpiresAt: &expiresAt,
			}, nil),
	)

	var statuses []domain.ReportStatus
	m.jobRepo.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *domain.ReportJob) error {
			statuses = append(statuses, job.Status)
			return nil
		}).
		Times(2)

	result, err := service.PollUntilTerminal(context.Background(), "rep-1")

	assert.NoError(t, err)
	assert.Equal(t, domain.ReportStatusCompleted, result.Status)
	assert.Equal(t, []domain.ReportStatus{
		domain.ReportStatusProcessing,
		domain.ReportStatusCompleted,
	}, statuses)
	assert.NotNil(t, result.URL)
}

func TestPollUntilTerminal_RateLimitRespeitaRetryAfter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	job := &domain.ReportJob{
		ReportID:     "rep-1",
		ConnectionID: "conn-1",
		Status:       domain.ReportStatusPending,
		CreatedAt:    time.Now(),
	}

	m.jobRepo.EXPECT().
		GetByReportID(gomock.Any(), "rep-1").
		Return(job, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("access-token", nil)

	retryAfter := 30 * time.Millisecond

	gomock.InOrder(
		m.client.EXPECT().
			GetReportStatus(gomock.Any(), "prof-1", "access-token", "rep-1").
			Return(nil, &adsdomain.RateLimitedError{RetryAfter: retryAfter}),
		m.client.EXPECT().
			GetReportStatus(gomock.Any(), "prof-1", "access-token", "rep-1").
			Return(&adsdomain.ReportResponse{ReportID: "rep-1", Status: "COMPLETED"}, nil),
	)

	m.jobRepo.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		Return(nil)

	start := time.Now()
	result, err := service.PollUntilTerminal(context.Background(), "rep-1")
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Equal(t, domain.ReportStatusCompleted, result.Status)

	// A consulta seguinte só acontece depois do Retry-After informado, mesmo
	// acima do teto de backoff configurado
	assert.GreaterOrEqual(t, elapsed, retryAfter)
}

func TestPollUntilTerminal_JobTerminalRetornaSemConsultarAAPI(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	reason := "INTERNAL_ERROR"
	job := &domain.ReportJob{
		ReportID:      "rep-1",
		ConnectionID:  "conn-1",
		Status:        domain.ReportStatusFailed,
		FailureReason: &reason,
		CreatedAt:     time.Now().Add(-time.Hour),
	}

	m.jobRepo.EXPECT().
		GetByReportID(gomock.Any(), "rep-1").
		Return(job, nil)

	result, err := service.PollUntilTerminal(context.Background(), "rep-1")

	assert.NoError(t, err)
	assert.Same(t, job, result)
}

func TestPollUntilTerminal_PrazoExcedidoMarcaTimedOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	// Job criado há mais tempo que o prazo máximo de polling
	job := &domain.ReportJob{
		ReportID:     "rep-1",
		ConnectionID: "conn-1",
		Status:       domain.ReportStatusProcessing,
		CreatedAt:    time.Now().Add(-4 * time.Hour),
	}

	m.jobRepo.EXPECT().
		GetByReportID(gomock.Any(), "rep-1").
		Return(job, nil)

	m.connRepo.EXPECT().
		GetByID(gomock.Any(), "conn-1").
		Return(testConnection(), nil)

	m.creds.EXPECT().
		EnsureFresh(gomock.Any(), "conn-1").
		Return("access-token", nil)

	var persisted *domain.ReportJob
	m.jobRepo.EXPECT().
		Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, job *domain.ReportJob) error {
			persisted = job
			return nil
		})

	result, err := service.PollUntilTerminal(context.Background(), "rep-1")

	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, domain.ReportStatusTimedOut, result.Status)
	assert.NotNil(t, result.FailureReason)

	// O estado terminal foi persistido antes de retornar
	assert.Equal(t, domain.ReportStatusTimedOut, persisted.Status)
}

func TestFetchArtifact_BaixaDescomprimeEArmazena(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	url := "https://offline-report-storage.s3.amazonaws.com/rep-1.json.gz"
	expiresAt := time.Now().Add(time.Hour)

	job := &domain.ReportJob{
		ReportID:     "rep-1",
		ConnectionID: "conn-1",
		Status:       domain.ReportStatusCompleted,
		URL:          &url,
		URLExpiresAt: &expiresAt,
		CreatedAt:    time.Now().Add(-time.Hour),
	}

	m.jobRepo.EXPECT().
		GetByReportID(gomock.Any(), "rep-1").
		Return(job, nil)

	content := `[{"date":"2024-01-01","impressions":100,"clicks":7}]`

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write([]byte(content))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())

	m.client.EXPECT().
		DownloadReport(gomock.Any(), url).
		Return(io.NopCloser(bytes.NewReader(compressed.Bytes())), nil)

	m.artifacts.EXPECT().
		Save(gomock.Any(), job, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *domain.ReportJob, reader io.Reader) (string, error) {
			// O serviço entrega o conteúdo já descomprimido, em streaming
			decompressed, err := io.ReadAll(reader)
			assert.NoError(t, err)
			assert.Equal(t, content, string(decompressed))
			return "reports/user-1/prof-1/rep-1.json", nil
		})

	m.jobRepo.EXPECT().
		SetArtifactLocation(gomock.Any(), "rep-1", "reports/user-1/prof-1/rep-1.json").
		Return(nil)

	location, err := service.FetchArtifact(context.Background(), "rep-1")

	assert.NoError(t, err)
	assert.Equal(t, "reports/user-1/prof-1/rep-1.json", location)
}

func TestFetchArtifact_URLExpiradaFalhaSemBaixar(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	url := "https://offline-report-storage.s3.amazonaws.com/rep-1.json.gz"
	expiresAt := time.Now().Add(-time.Minute)

	job := &domain.ReportJob{
		ReportID:     "rep-1",
		ConnectionID: "conn-1",
		Status:       domain.ReportStatusCompleted,
		URL:          &url,
		URLExpiresAt: &expiresAt,
	}

	m.jobRepo.EXPECT().
		GetByReportID(gomock.Any(), "rep-1").
		Return(job, nil)

	_, err := service.FetchArtifact(context.Background(), "rep-1")

	assert.ErrorIs(t, err, ErrArtifact)
}

func TestFetchArtifact_JobNaoConcluidoFalha(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service, m := newTestService(ctrl)

	job := &domain.ReportJob{
		ReportID:     "rep-1",
		ConnectionID: "conn-1",
		Status:       domain.ReportStatusProcessing,
	}

	m.jobRepo.EXPECT().
		GetByReportID(gomock.Any(), "rep-1").
		Return(job, nil)

	_, err := service.FetchArtifact(context.Background(), "rep-1")

	assert.ErrorIs(t, err, ErrArtifact)
}

func TestApplySnapshot_NaoRegrideStatus(t *testing.T) {
	job := &domain.ReportJob{
		ReportID: "rep-1",
		Status:   domain.ReportStatusProcessing,
	}

	// Snapshot atrasado com status anterior não desfaz o progresso
	applySnapshot(job, &adsdomain.ReportResponse{ReportID: "rep-1", Status: "PENDING"})
	assert.Equal(t, domain.ReportStatusProcessing, job.Status)

	applySnapshot(job, &adsdomain.ReportResponse{ReportID: "rep-1", Status: "COMPLETED"})
	assert.Equal(t, domain.ReportStatusCompleted, job.Status)
}
