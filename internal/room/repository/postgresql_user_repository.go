package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// PostgreSQLUserRepository implements read-only User lookups for PostgreSQL databases.
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQL User repository instance.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}

// GetByID retrieves a user by ID.
func (p *PostgreSQLUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*roomDomain.User, error) {
	querier := database.GetTx(ctx, p.db)

	var user roomDomain.User
	err := querier.QueryRowContext(ctx, `SELECT id, username, email FROM users WHERE id = $1`, userID).
		Scan(&user.ID, &user.Username, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roomDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}
	return &user, nil
}

// GetByUsername retrieves a user by exact username.
func (p *PostgreSQLUserRepository) GetByUsername(ctx context.Context, username string) (*roomDomain.User, error) {
	querier := database.GetTx(ctx, p.db)

	var user roomDomain.User
	err := querier.QueryRowContext(ctx, `SELECT id, username, email FROM users WHERE username = $1`, username).
		Scan(&user.ID, &user.Username, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roomDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user by username")
	}
	return &user, nil
}
