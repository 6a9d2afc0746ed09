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

// MySQLUserRepository implements read-only User lookups for MySQL databases.
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQL User repository instance.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// GetByID retrieves a user by ID.
func (m *MySQLUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*roomDomain.User, error) {
	id, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}
	return m.getOne(ctx, `SELECT id, username, email FROM users WHERE id = ?`, id)
}

// GetByUsername retrieves a user by exact username.
func (m *MySQLUserRepository) GetByUsername(ctx context.Context, username string) (*roomDomain.User, error) {
	return m.getOne(ctx, `SELECT id, username, email FROM users WHERE username = ?`, username)
}

func (m *MySQLUserRepository) getOne(ctx context.Context, query string, arg any) (*roomDomain.User, error) {
	querier := database.GetTx(ctx, m.db)

	var user roomDomain.User
	var id []byte
	err := querier.QueryRowContext(ctx, query, arg).Scan(&id, &user.Username, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roomDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}
	if err := user.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user id")
	}
	return &user, nil
}
