package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/buffapp/amazon-ads-api/infrastructure/database/postgres"
	"github.com/buffapp/amazon-ads-api/internal/domain"
)

const (
	connectionsTable = "connections c"
)

type ConnectionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Connection, error)
	GetByProfileID(ctx context.Context, profileID string) (*domain.Connection, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Connection, error)
	Save(ctx context.Context, conn *domain.Connection) error
	UpdateTokens(ctx context.Context, conn *domain.Connection) error
	Delete(ctx context.Context, id string) error
}

type connectionRepository struct {
	conn *postgres.Connection
}

func NewConnectionRepository(conn *postgres.Connection) ConnectionRepository {
	return &connectionRepository{
		conn: conn,
	}
}

const connectionColumns = "c.id, c.user_id, c.profile_id, c.country_code, c.currency_code, " +
	"c.marketplace_id, c.account_name, c.account_type, c.encrypted_refresh_token, " +
	"c.encrypted_access_token, c.token_expires_at, c.created_at, c.updated_at"

func (r *connectionRepository) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	return r.getConnection(ctx, squirrel.Eq{"c.id": id})
}

func (r *connectionRepository) GetByProfileID(ctx context.Context, profileID string) (*domain.Connection, error) {
	return r.getConnection(ctx, squirrel.Eq{"c.profile_id": profileID})
}

func (r *connectionRepository) getConnection(ctx context.Context, whereClause map[string]interface{}) (*domain.Connection, error) {
	query, args, err := squirrel.
		Select(connectionColumns).
		From(connectionsTable).
		Where(whereClause).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRowContext(ctx, query, args...)

	connection, err := scanConnection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear conexão: %w", err)
	}

	return connection, nil
}

func (r *connectionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Connection, error) {
	query, args, err := squirrel.
		Select(connectionColumns).
		From(connectionsTable).
		Where(squirrel.Eq{"c.user_id": userID}).
		OrderBy("c.created_at ASC").
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

	connections := make([]*domain.Connection, 0)
	for rows.Next() {
		connection, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear conexões: %w", err)
		}
		connections = append(connections, connection)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return connections, nil
}

func (r *connectionRepository) Save(ctx context.Context, conn *domain.Connection) error {
	query, args, err := squirrel.
		Insert("connections").
		Columns(
			"id", "user_id", "profile_id", "country_code", "currency_code",
			"marketplace_id", "account_name", "account_type",
			"encrypted_refresh_token", "encrypted_access_token", "token_expires_at",
		).
		Values(
			conn.ID,
			conn.UserID,
			conn.ProfileID,
			conn.CountryCode,
			conn.CurrencyCode,
			conn.MarketplaceID,
			conn.AccountName,
			conn.AccountType,
			conn.EncryptedRefreshToken,
			conn.EncryptedAccessToken,
			conn.TokenExpiresAt,
		).
		Suffix(`
			ON CONFLICT (profile_id) DO UPDATE SET
				encrypted_refresh_token = EXCLUDED.encrypted_refresh_token,
				encrypted_access_token = EXCLUDED.encrypted_access_token,
				token_expires_at = EXCLUDED.token_expires_at,
				updated_at = NOW()
		`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao salvar conexão: %w", err)
	}

	return nil
}

func (r *connectionRepository) UpdateTokens(ctx context.Context, conn *domain.Connection) error {
	query, args, err := squirrel.
		Update("connections").
		Set("encrypted_refresh_token", conn.EncryptedRefreshToken).
		Set("encrypted_access_token", conn.EncryptedAccessToken).
		Set("token_expires_at", conn.TokenExpiresAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": conn.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao atualizar tokens da conexão: %w", err)
	}

	return nil
}

func (r *connectionRepository) Delete(ctx context.Context, id string) error {
	query, args, err := squirrel.
		Delete("connections").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("erro ao remover conexão: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*domain.Connection, error) {
	conn := &domain.Connection{}
	var tokenExpiresAt sql.NullTime

	if err := row.Scan(
		&conn.ID,
		&conn.UserID,
		&conn.ProfileID,
		&conn.CountryCode,
		&conn.CurrencyCode,
		&conn.MarketplaceID,
		&conn.AccountName,
		&conn.AccountType,
		&conn.EncryptedRefreshToken,
		&conn.EncryptedAccessToken,
		&tokenExpiresAt,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if tokenExpiresAt.Valid {
		expiresAt := tokenExpiresAt.Time.UTC()
		conn.TokenExpiresAt = &expiresAt
	}

	return conn, nil
}
