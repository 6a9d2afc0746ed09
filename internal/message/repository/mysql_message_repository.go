package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
)

// MySQLMessageRepository implements Message persistence for MySQL databases.
// UUIDs are stored as BINARY(16).
type MySQLMessageRepository struct {
	db *sql.DB
}

// NewMySQLMessageRepository creates a new MySQL Message repository instance.
func NewMySQLMessageRepository(db *sql.DB) *MySQLMessageRepository {
	return &MySQLMessageRepository{db: db}
}

// Create inserts a new message.
func (m *MySQLMessageRepository) Create(ctx context.Context, message *messageDomain.Message) error {
	querier := database.GetTx(ctx, m.db)

	id, err := message.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}
	roomID, err := message.RoomID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal room id")
	}
	senderID, err := marshalNullableUUID(message.SenderID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal sender id")
	}

	query := `INSERT INTO messages (id, room_id, sender_id, ciphertext, nonce, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, roomID, senderID, message.Ciphertext, message.Nonce, message.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create message")
	}
	return nil
}

// ListByRoom returns up to limit messages of the room, newest first, skipping offset.
func (m *MySQLMessageRepository) ListByRoom(
	ctx context.Context,
	roomID uuid.UUID,
	offset, limit int,
) ([]*messageDomain.Message, error) {
	querier := database.GetTx(ctx, m.db)

	rid, err := roomID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal room id")
	}

	query := `SELECT m.id, m.room_id, m.sender_id, u.username, m.ciphertext, m.nonce, m.created_at
			  FROM messages m
			  LEFT JOIN users u ON u.id = m.sender_id
			  WHERE m.room_id = ?
			  ORDER BY m.created_at DESC, m.id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, rid, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list messages")
	}
	defer func() {
		_ = rows.Close()
	}()

	messages := make([]*messageDomain.Message, 0)
	for rows.Next() {
		message, err := scanMySQLMessage(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan message")
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate messages")
	}
	return messages, nil
}

// Get retrieves a message by ID.
func (m *MySQLMessageRepository) Get(ctx context.Context, messageID uuid.UUID) (*messageDomain.Message, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := messageID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal message id")
	}

	query := `SELECT m.id, m.room_id, m.sender_id, u.username, m.ciphertext, m.nonce, m.created_at
			  FROM messages m
			  LEFT JOIN users u ON u.id = m.sender_id
			  WHERE m.id = ?`

	message, err := scanMySQLMessage(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, messageDomain.ErrMessageNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get message")
	}
	return message, nil
}

func scanMySQLMessage(row rowScanner) (*messageDomain.Message, error) {
	var message messageDomain.Message
	var id, roomID, senderID []byte

	if err := row.Scan(
		&id,
		&roomID,
		&senderID,
		&message.SenderUsername,
		&message.Ciphertext,
		&message.Nonce,
		&message.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := message.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal message id")
	}
	if err := message.RoomID.UnmarshalBinary(roomID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal room id")
	}
	sender, err := unmarshalNullableUUID(senderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal sender id")
	}
	message.SenderID = sender
	return &message, nil
}

// marshalNullableUUID returns an untyped nil for a missing id so the driver writes NULL.
func marshalNullableUUID(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	return id.MarshalBinary()
}

func unmarshalNullableUUID(b []byte) (*uuid.UUID, error) {
	if b == nil {
		return nil, nil
	}
	var id uuid.UUID
	if err := id.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return &id, nil
}
