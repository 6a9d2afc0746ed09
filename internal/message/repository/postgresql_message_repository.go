// Package repository implements persistence for messages and attachments.
// Every repository has a PostgreSQL and a MySQL implementation and joins the ambient
// transaction carried by the context, if any.
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

// PostgreSQLMessageRepository implements Message persistence for PostgreSQL databases.
type PostgreSQLMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLMessageRepository creates a new PostgreSQL Message repository instance.
func NewPostgreSQLMessageRepository(db *sql.DB) *PostgreSQLMessageRepository {
	return &PostgreSQLMessageRepository{db: db}
}

// Create inserts a new message.
func (p *PostgreSQLMessageRepository) Create(ctx context.Context, message *messageDomain.Message) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO messages (id, room_id, sender_id, ciphertext, nonce, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		message.ID,
		message.RoomID,
		message.SenderID,
		message.Ciphertext,
		message.Nonce,
		message.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create message")
	}
	return nil
}

// ListByRoom returns up to limit messages of the room, newest first, skipping offset.
func (p *PostgreSQLMessageRepository) ListByRoom(
	ctx context.Context,
	roomID uuid.UUID,
	offset, limit int,
) ([]*messageDomain.Message, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT m.id, m.room_id, m.sender_id, u.username, m.ciphertext, m.nonce, m.created_at
			  FROM messages m
			  LEFT JOIN users u ON u.id = m.sender_id
			  WHERE m.room_id = $1
			  ORDER BY m.created_at DESC, m.id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, roomID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list messages")
	}
	defer func() {
		_ = rows.Close()
	}()

	messages := make([]*messageDomain.Message, 0)
	for rows.Next() {
		var message messageDomain.Message
		if err := rows.Scan(
			&message.ID,
			&message.RoomID,
			&message.SenderID,
			&message.SenderUsername,
			&message.Ciphertext,
			&message.Nonce,
			&message.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan message")
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate messages")
	}
	return messages, nil
}

// Get retrieves a message by ID.
func (p *PostgreSQLMessageRepository) Get(ctx context.Context, messageID uuid.UUID) (*messageDomain.Message, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT m.id, m.room_id, m.sender_id, u.username, m.ciphertext, m.nonce, m.created_at
			  FROM messages m
			  LEFT JOIN users u ON u.id = m.sender_id
			  WHERE m.id = $1`

	var message messageDomain.Message
	err := querier.QueryRowContext(ctx, query, messageID).Scan(
		&message.ID,
		&message.RoomID,
		&message.SenderID,
		&message.SenderUsername,
		&message.Ciphertext,
		&message.Nonce,
		&message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, messageDomain.ErrMessageNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get message")
	}
	return &message, nil
}
