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

const mysqlRoomColumns = `r.id, r.name, r.description, r.visibility, r.owner_id, u.username,
		r.key_envelope, r.created_at, r.updated_at`

// MySQLRoomRepository implements Room persistence for MySQL databases.
// UUIDs are stored as BINARY(16).
type MySQLRoomRepository struct {
	db *sql.DB
}

// NewMySQLRoomRepository creates a new MySQL Room repository instance.
func NewMySQLRoomRepository(db *sql.DB) *MySQLRoomRepository {
	return &MySQLRoomRepository{db: db}
}

// Create inserts a new room.
func (m *MySQLRoomRepository) Create(ctx context.Context, room *roomDomain.Room) error {
	querier := database.GetTx(ctx, m.db)

	id, err := room.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal room id")
	}

	ownerID, err := room.OwnerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal owner id")
	}

	query := `INSERT INTO rooms (id, name, description, visibility, owner_id, key_envelope, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		room.Name,
		room.Description,
		string(room.Visibility),
		ownerID,
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
func (m *MySQLRoomRepository) Get(ctx context.Context, roomID uuid.UUID) (*roomDomain.Room, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := roomID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal room id")
	}

	query := `SELECT ` + mysqlRoomColumns + `
			  FROM rooms r
			  JOIN users u ON u.id = r.owner_id
			  WHERE r.id = ?`

	room, err := scanMySQLRoom(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roomDomain.ErrRoomNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get room")
	}
	return room, nil
}

// ListByMember lists rooms the user belongs to, most recently active first.
func (m *MySQLRoomRepository) ListByMember(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*roomDomain.Room, error) {
	querier := database.GetTx(ctx, m.db)

	uid, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT ` + mysqlRoomColumns + `
			  FROM rooms r
			  JOIN memberships m ON m.room_id = r.id
			  JOIN users u ON u.id = r.owner_id
			  WHERE m.user_id = ?
			  ORDER BY r.updated_at DESC, r.id
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, uid, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rooms")
	}
	defer func() {
		_ = rows.Close()
	}()

	rooms := make([]*roomDomain.Room, 0)
	for rows.Next() {
		room, err := scanMySQLRoom(rows)
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
func (m *MySQLRoomRepository) ListKeyEnvelopes(
	ctx context.Context,
	offset, limit int,
) ([]*roomDomain.Room, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(
		ctx,
		`SELECT id, key_envelope FROM rooms ORDER BY id LIMIT ? OFFSET ?`,
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
		var id []byte
		if err := rows.Scan(&id, &room.KeyEnvelope); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan room key envelope")
		}
		if err := room.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal room id")
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate room key envelopes")
	}
	return rooms, nil
}

// UpdateKeyEnvelope replaces a room's wrapped key.
func (m *MySQLRoomRepository) UpdateKeyEnvelope(
	ctx context.Context,
	roomID uuid.UUID,
	envelope []byte,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := roomID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal room id")
	}

	result, err := querier.ExecContext(ctx, `UPDATE rooms SET key_envelope = ? WHERE id = ?`, envelope, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update room key envelope")
	}
	return expectOneRow(result, roomDomain.ErrRoomNotFound)
}

// Touch sets updated_at, marking new activity in the room.
func (m *MySQLRoomRepository) Touch(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	id, err := roomID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal room id")
	}

	if _, err := querier.ExecContext(ctx, `UPDATE rooms SET updated_at = ? WHERE id = ?`, at, id); err != nil {
		return apperrors.Wrap(err, "failed to touch room")
	}
	return nil
}

// Delete removes a room. Memberships, messages and attachments cascade.
func (m *MySQLRoomRepository) Delete(ctx context.Context, roomID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := roomID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal room id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete room")
	}
	return expectOneRow(result, roomDomain.ErrRoomNotFound)
}

func scanMySQLRoom(row rowScanner) (*roomDomain.Room, error) {
	var room roomDomain.Room
	var id, ownerID []byte
	var visibility string

	err := row.Scan(
		&id,
		&room.Name,
		&room.Description,
		&visibility,
		&ownerID,
		&room.OwnerUsername,
		&room.KeyEnvelope,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := room.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal room id")
	}
	if err := room.OwnerID.UnmarshalBinary(ownerID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal owner id")
	}
	room.Visibility = roomDomain.Visibility(visibility)
	return &room, nil
}
