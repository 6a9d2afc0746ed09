// Package repository implements persistence for rooms, memberships and users.
// Every repository has a PostgreSQL and a MySQL implementation and joins the ambient
// transaction carried by the context, if any.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

const postgresRoomColumns = `r.id, r.name, r.description, r.visibility, r.owner_id, u.username,
		r.key_envelope, r.created_at, r.updated_at`

// PostgreSQLRoomRepository implements Room persistence for PostgreSQL databases.
type PostgreSQLRoomRepository struct {
	db *sql.DB
}

// NewPostgreSQLRoomRepository creates a new PostgreSQL Room repository instance.
func NewPostgreSQLRoomRepository(db *sql.DB) *PostgreSQLRoomRepository {
	return &PostgreSQLRoomRepository{db: db}
}

// Create inserts a new room.
func (p *PostgreSQLRoomRepository) Create(ctx context.Context, room *roomDomain.Room) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rooms (id, name, description, visibility, owner_id, key_envelope, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		room.ID,
		room.Name,
		room.Description,
		string(room.Visibility),
		room.OwnerID,
		room.KeyEnvelope,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create room")
	}
	return nil
}

// Get retrieves a room by ID together with its owner's username.
func (p *PostgreSQLRoomRepository) Get(ctx context.Context, roomID uuid.UUID) (*roomDomain.Room, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresRoomColumns + `
			  FROM rooms r
			  JOIN users u ON u.id = r.owner_id
			  WHERE r.id = $1`

	room, err := scanPostgresRoom(querier.QueryRowContext(ctx, query, roomID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roomDomain.ErrRoomNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get room")
	}
	return room, nil
}

// ListByMember lists rooms the user belongs to, most recently active first.
func (p *PostgreSQLRoomRepository) ListByMember(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*roomDomain.Room, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresRoomColumns + `
			  FROM rooms r
			  JOIN memberships m ON m.room_id = r.id
			  JOIN users u ON u.id = r.owner_id
			  WHERE m.user_id = $1
			  ORDER BY r.updated_at DESC, r.id
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rooms")
	}
	defer func() {
		_ = rows.Close()
	}()

	rooms := make([]*roomDomain.Room, 0)
	for rows.Next() {
		room, err := scanPostgresRoom(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan room")
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rooms")
	}
	return rooms, nil
}

// ListKeyEnvelopes pages through every room ordered by ID. Only ID and KeyEnvelope are set.
func (p *PostgreSQLRoomRepository) ListKeyEnvelopes(
	ctx context.Context,
	offset, limit int,
) ([]*roomDomain.Room, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(
		ctx,
		`SELECT id, key_envelope FROM rooms ORDER BY id LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list room key envelopes")
	}
	defer func() {
		_ = rows.Close()
	}()

	rooms := make([]*roomDomain.Room, 0)
	for rows.Next() {
		var room roomDomain.Room
		if err := rows.Scan(&room.ID, &room.KeyEnvelope); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan room key envelope")
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate room key envelopes")
	}
	return rooms, nil
}

// UpdateKeyEnvelope replaces a room's wrapped key.
func (p *PostgreSQLRoomRepository) UpdateKeyEnvelope(
	ctx context.Context,
	roomID uuid.UUID,
	envelope []byte,
) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `UPDATE rooms SET key_envelope = $1 WHERE id = $2`, envelope, roomID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update room key envelope")
	}
	return expectOneRow(result, roomDomain.ErrRoomNotFound)
}

// Touch sets updated_at, marking new activity in the room.
func (p *PostgreSQLRoomRepository) Touch(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `UPDATE rooms SET updated_at = $1 WHERE id = $2`, at, roomID); err != nil {
		return apperrors.Wrap(err, "failed to touch room")
	}
	return nil
}

// Delete removes a room. Memberships, messages and attachments cascade.
func (p *PostgreSQLRoomRepository) Delete(ctx context.Context, roomID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete room")
	}
	return expectOneRow(result, roomDomain.ErrRoomNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresRoom(row rowScanner) (*roomDomain.Room, error) {
	var room roomDomain.Room
	var visibility string

	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Description,
		&visibility,
		&room.OwnerID,
		&room.OwnerUsername,
		&room.KeyEnvelope,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	room.Visibility = roomDomain.Visibility(visibility)
	return &room, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
