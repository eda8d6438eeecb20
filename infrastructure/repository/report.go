package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/buffapp/amazon-ads-api/infrastructure/database/postgres"
	"github.com/buffapp/amazon-ads-api/internal/domain"
)

const (
	reportJobsTable = "report_jobs rj"

	// Precedência de estados replicada em SQL para o guard de regressão
	// do upsert: um snapshot atrasado nunca desfaz progresso já persistido
	statusRankSQL = "CASE %s WHEN 'CREATED' THEN 0 WHEN 'SUBMITTED' THEN 1 WHEN 'PENDING' THEN 2 WHEN 'PROCESSING' THEN 3 ELSE 4 END"
)

type ReportJobRepository interface {
	GetByReportID(ctx context.Context, reportID string) (*domain.ReportJob, error)
	GetByConfigHash(ctx context.Context, connectionID, configHash string, since time.Time) (*domain.ReportJob, error)
	Upsert(ctx context.Context, job *domain.ReportJob) error
	SetArtifactLocation(ctx context.Context, reportID, location string) error
	ListUnfinished(ctx context.Context, limit int) ([]*domain.ReportJob, error)
}

type reportJobRepository struct {
	conn *postgres.Connection
}

func NewReportJobRepository(conn *postgres.Connection) ReportJobRepository {
	return &reportJobRepository{
		conn: conn,
	}
}

const reportJobColumns = "rj.report_id, rj.connection_id, rj.config_hash, rj.ad_product, " +
	"rj.time_unit, rj.status, rj.failure_reason, rj.url, rj.url_expires_at, " +
	"rj.generated_at, rj.artifact_location, rj.created_at, rj.updated_at"

func (r *reportJobRepository) GetByReportID(ctx context.Context, reportID string) (*domain.ReportJob, error) {
	query, args, err := squirrel.
		Select(reportJobColumns).
		From(reportJobsTable).
		Where(squirrel.Eq{"rj.report_id": reportID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRowContext(ctx, query, args...)

	job, err := scanReportJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear report job: %w", err)
	}

	return job, nil
}

// GetByConfigHash busca um job vivo com a mesma configuração canônica,
// criado dentro da janela de deduplicação local
func (r *reportJobRepository) GetByConfigHash(ctx context.Context, connectionID, configHash string, since time.Time) (*domain.ReportJob, error) {
	query, args, err := squirrel.
		Select(reportJobColumns).
		From(reportJobsTable).
		Where(squirrel.Eq{"rj.connection_id": connectionID, "rj.config_hash": configHash}).
		Where(squirrel.GtOrEq{"rj.created_at": since}).
		Where(squirrel.NotEq{"rj.status": []string{
			string(domain.ReportStatusFailed),
			string(domain.ReportStatusTimedOut),
		}}).
		OrderBy("rj.created_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRowContext(ctx, query, args...)

	job, err := scanReportJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear report job: %w", err)
	}

	return job, nil
}

// Upsert é idempotente por report_id: aplicar o mesmo snapshot duas vezes
// não duplica registros nem regride o status persistido
func (r *reportJobRepository) Upsert(ctx context.Context, job *domain.ReportJob) error {
	regressionGuard := fmt.Sprintf(
		"WHERE (%s) <= (%s)",
		fmt.Sprintf(statusRankSQL, "report_jobs.status"),
		fmt.Sprintf(statusRankSQL, "EXCLUDED.status"),
	)

	query, args, err := squirrel.StatementBuilder.
		Insert("report_jobs").
		Columns(
			"report_id", "connection_id", "config_hash", "ad_product", "time_unit",
			"status", "failure_reason", "url", "url_expires_at", "generated_at",
			"artifact_location",
		).
		Values(
			job.ReportID,
			job.ConnectionID,
			job.ConfigHash,
			string(job.AdProduct),
			string(job.TimeUnit),
			string(job.Status),
			job.FailureReason,
			job.URL,
			job.URLExpiresAt,
			job.GeneratedAt,
			job.ArtifactLocation,
		).
		Suffix(`
			ON CONFLICT (report_id) DO UPDATE SET
				status = EXCLUDED.status,
				failure_reason = EXCLUDED.failure_reason,
				url = EXCLUDED.url,
				url_expires_at = EXCLUDED.url_expires_at,
				generated_at = EXCLUDED.generated_at,
				artifact_location = COALESCE(EXCLUDED.artifact_location, report_jobs.artifact_location),
				updated_at = NOW()
			` + regressionGuard).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao persistir report job: %w", err)
	}

	return nil
}

func (r *reportJobRepository) SetArtifactLocation(ctx context.Context, reportID, location string) error {
	query, args, err := squirrel.
		Update("report_jobs").
		Set("artifact_location", location).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"report_id": reportID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao registrar localização do artefato: %w", err)
	}

	return nil
}

// ListUnfinished retorna os jobs ainda não terminais, mais antigos primeiro,
// para a varredura do report poller
func (r *reportJobRepository) ListUnfinished(ctx context.Context, limit int) ([]*domain.ReportJob, error) {
	query, args, err := squirrel.
		Select(reportJobColumns).
		From(reportJobsTable).
		Where(squirrel.Eq{"rj.status": []string{
			string(domain.ReportStatusSubmitted),
			string(domain.ReportStatusPending),
			string(domain.ReportStatusProcessing),
		}}).
		OrderBy("rj.created_at ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.ReportJob, 0)
	for rows.Next() {
		job, err := scanReportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear report jobs: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return jobs, nil
}

func scanReportJob(row rowScanner) (*domain.ReportJob, error) {
	job := &domain.ReportJob{}

	var (
		failureReason    sql.NullString
		url              sql.NullString
		urlExpiresAt     sql.NullTime
		generatedAt      sql.NullTime
		artifactLocation sql.NullString
	)

	if err := row.Scan(
		&job.ReportID,
		&job.ConnectionID,
		&job.ConfigHash,
		&job.AdProduct,
		&job.TimeUnit,
		&job.Status,
		&failureReason,
		&url,
		&urlExpiresAt,
		&generatedAt,
		&artifactLocation,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if failureReason.Valid {
		job.FailureReason = &failureReason.String
	}
	if url.Valid {
		job.URL = &url.String
	}
	if urlExpiresAt.Valid {
		expiresAt := urlExpiresAt.Time.UTC()
		job.URLExpiresAt = &expiresAt
	}
	if generatedAt.Valid {
		generated := generatedAt.Time.UTC()
		job.GeneratedAt = &generated
	}
	if artifactLocation.Valid {
		job.ArtifactLocation = &artifactLocation.String
	}

	return job, nil
}
