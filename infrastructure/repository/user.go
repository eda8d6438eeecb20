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

const usersTable = "users u"

type UserRepository interface {
	GetUserByID(ctx context.Context, id int) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
}

type userRepository struct {
	conn *postgres.Connection
}

func NewUserRepository(conn *postgres.Connection) UserRepository {
	return &userRepository{
		conn: conn,
	}
}

const userColumns = "u.id, u.name, u.email, u.password_hash, u.role_id, u.active, u.created_at"

func (r *userRepository) GetUserByID(ctx context.Context, id int) (*domain.User, error) {
	return r.getUser(ctx, squirrel.Eq{"u.id": id})
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, squirrel.Eq{"u.email": email})
}

func (r *userRepository) getUser(ctx context.Context, whereClause map[string]interface{}) (*domain.User, error) {
	query, args, err := squirrel.
		Select(userColumns).
		From(usersTable).
		Where(whereClause).
		Where(squirrel.Eq{"u.deleted_at": nil}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRowContext(ctx, query, args...)

	user := &domain.User{}
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.RoleID,
		&user.Active,
		&user.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear usuário: %w", err)
	}

	return user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query, args, err := squirrel.
		Insert("users").
		Columns("name", "email", "password_hash", "role_id", "active").
		Values(user.Name, user.Email, user.PasswordHash, user.RoleID, user.Active).
		Suffix("RETURNING id, created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return nil, fmt.Errorf("erro ao criar usuário: %w", err)
	}

	return user, nil
}
