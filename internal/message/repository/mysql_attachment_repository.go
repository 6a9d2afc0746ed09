package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
)

const mysqlAttachmentColumns = `a.id, a.message_id, m.room_id, a.blob_key, a.encrypted_filename,
			  a.filename_nonce, a.size, a.content_type, a.uploaded_at`

// MySQLAttachmentRepository implements Attachment persistence for MySQL databases.
type MySQLAttachmentRepository struct {
	db *sql.DB
}

// NewMySQLAttachmentRepository creates a new MySQL Attachment repository instance.
func NewMySQLAttachmentRepository(db *sql.DB) *MySQLAttachmentRepository {
	return &MySQLAttachmentRepository{db: db}
}

// Create inserts a new attachment.
func (m *MySQLAttachmentRepository) Create(ctx context.Context, attachment *messageDomain.Attachment) error {
	querier := database.GetTx(ctx, m.db)

	id, err := attachment.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal attachment id")
	}
	messageID, err := attachment.MessageID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}

	query := `INSERT INTO attachments
			  (id, message_id, blob_key, encrypted_filename, filename_nonce, size, content_type, uploaded_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		messageID,
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
func (m *MySQLAttachmentRepository) ListByMessages(
	ctx context.Context,
	messageIDs []uuid.UUID,
) ([]*messageDomain.Attachment, error) {
	if len(messageIDs) == 0 {
		return []*messageDomain.Attachment{}, nil
	}
	querier := database.GetTx(ctx, m.db)

	args := make([]any, 0, len(messageIDs))
	for _, id := range messageIDs {
		b, err := id.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal message id")
		}
		args = append(args, b)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")

	query := `SELECT ` + mysqlAttachmentColumns + `
			  FROM attachments a
			  JOIN messages m ON m.id = a.message_id
			  WHERE a.message_id IN (` + placeholders + `)
			  ORDER BY a.uploaded_at, a.id`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list attachments")
	}
	defer func() {
		_ = rows.Close()
	}()

	attachments := make([]*messageDomain.Attachment, 0)
	for rows.Next() {
		attachment, err := scanMySQLAttachment(rows)
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
func (m *MySQLAttachmentRepository) Get(
	ctx context.Context,
	attachmentID uuid.UUID,
) (*messageDomain.Attachment, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := attachmentID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal attachment id")
	}

	query := `SELECT ` + mysqlAttachmentColumns + `
			  FROM attachments a
			  JOIN messages m ON m.id = a.message_id
			  WHERE a.id = ?`

	attachment, err := scanMySQLAttachment(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, messageDomain.ErrAttachmentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get attachment")
	}
	return attachment, nil
}

// ListBlobKeysByRoom returns the blob keys of every attachment in the room.
func (m *MySQLAttachmentRepository) ListBlobKeysByRoom(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

	rid, err := roomID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal room id")
	}

	rows, err := querier.QueryContext(
		ctx,
		`SELECT a.blob_key FROM attachments a JOIN messages m ON m.id = a.message_id WHERE m.room_id = ?`,
		rid,
	)
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

func scanMySQLAttachment(row rowScanner) (*messageDomain.Attachment, error) {
	var attachment messageDomain.Attachment
	var id, messageID, roomID []byte

	if err := row.Scan(
		&id,
		&messageID,
		&roomID,
		&attachment.BlobKey,
		&attachment.EncryptedFilename,
		&attachment.FilenameNonce,
		&attachment.Size,
		&attachment.ContentType,
		&attachment.UploadedAt,
	); err != nil {
		return nil, err
	}

	if err := attachment.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal attachment id")
	}
	if err := attachment.MessageID.UnmarshalBinary(messageID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal message id")
	}
	if err := attachment.RoomID.UnmarshalBinary(roomID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal room id")
	}
	return &attachment, nil
}
