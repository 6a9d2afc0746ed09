package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
)

// PostgreSQLAttachmentRepository implements Attachment persistence for PostgreSQL databases.
type PostgreSQLAttachmentRepository struct {
	db *sql.DB
}

// NewPostgreSQLAttachmentRepository creates a new PostgreSQL Attachment repository instance.
func NewPostgreSQLAttachmentRepository(db *sql.DB) *PostgreSQLAttachmentRepository {
	return &PostgreSQLAttachmentRepository{db: db}
}

// Create inserts a new attachment.
func (p *PostgreSQLAttachmentRepository) Create(ctx context.Context, attachment *messageDomain.Attachment) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO attachments
			  (id, message_id, blob_key, encrypted_filename, filename_nonce, size, content_type, uploaded_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		attachment.ID,
		attachment.MessageID,
		attachment.BlobKey,
		attachment.EncryptedFilename,
		attachment.FilenameNonce,
		attachment.Size,
		attachment.ContentType,
		attachment.UploadedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create attachment")
	}
	return nil
}

// ListByMessages returns the attachments of the given messages in upload order.
func (p *PostgreSQLAttachmentRepository) ListByMessages(
	ctx context.Context,
	messageIDs []uuid.UUID,
) ([]*messageDomain.Attachment, error) {
	if len(messageIDs) == 0 {
		return []*messageDomain.Attachment{}, nil
	}
	querier := database.GetTx(ctx, p.db)

	ids := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		ids = append(ids, id.String())
	}

	query := `SELECT a.id, a.message_id, m.room_id, a.blob_key, a.encrypted_filename, a.filename_nonce,
			  a.size, a.content_type, a.uploaded_at
			  FROM attachments a
			  JOIN messages m ON m.id = a.message_id
			  WHERE a.message_id = ANY($1::uuid[])
			  ORDER BY a.uploaded_at, a.id`

	rows, err := querier.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list attachments")
	}
	defer func() {
		_ = rows.Close()
	}()

	attachments := make([]*messageDomain.Attachment, 0)
	for rows.Next() {
		attachment, err := scanPostgresAttachment(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan attachment")
		}
		attachments = append(attachments, attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate attachments")
	}
	return attachments, nil
}

// Get retrieves an attachment by ID together with the room it belongs to.
func (p *PostgreSQLAttachmentRepository) Get(
	ctx context.Context,
	attachmentID uuid.UUID,
) (*messageDomain.Attachment, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT a.id, a.message_id, m.room_id, a.blob_key, a.encrypted_filename, a.filename_nonce,
			  a.size, a.content_type, a.uploaded_at
			  FROM attachments a
			  JOIN messages m ON m.id = a.message_id
			  WHERE a.id = $1`

	attachment, err := scanPostgresAttachment(querier.QueryRowContext(ctx, query, attachmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, messageDomain.ErrAttachmentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get attachment")
	}
	return attachment, nil
}

// ListBlobKeysByRoom returns the blob keys of every attachment in the room.
func (p *PostgreSQLAttachmentRepository) ListBlobKeysByRoom(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT a.blob_key
			  FROM attachments a
			  JOIN messages m ON m.id = a.message_id
			  WHERE m.room_id = $1`

	rows, err := querier.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list attachment blob keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan blob key")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate blob keys")
	}
	return keys, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresAttachment(row rowScanner) (*messageDomain.Attachment, error) {
	var attachment messageDomain.Attachment
	err := row.Scan(
		&attachment.ID,
		&attachment.MessageID,
		&attachment.RoomID,
		&attachment.BlobKey,
		&attachment.EncryptedFilename,
		&attachment.FilenameNonce,
		&attachment.Size,
		&attachment.ContentType,
		&attachment.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}
