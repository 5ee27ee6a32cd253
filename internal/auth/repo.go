package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Repository defines persistence operations for the credential store.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, username, passwordHash string, role shared.Role) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	var role string
	err := r.pool.QueryRow(ctx, `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	user.Role = shared.Role(role)
	return &user, nil
}

// CreateUser inserts a user row and returns its id.
func (r *PGRepository) CreateUser(ctx context.Context, username, passwordHash string, role shared.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (username, password_hash, role, created_at) VALUES ($1, $2, $3, NOW()) RETURNING id`,
		username, passwordHash, string(role)).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, shared.ErrDuplicate
		}
		return 0, fmt.Errorf("auth: create user: %w", err)
	}
	return id, nil
}

var _ Repository = (*PGRepository)(nil)
