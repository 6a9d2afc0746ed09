// Package usecase defines the interfaces and implementations for message use cases.
//
// Every operation unwraps the room key once, uses it for the whole call and zeroes it on
// return. Room keys are never cached between calls.
package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// MessageRepository defines the interface for Message persistence operations.
type MessageRepository interface {
	Create(ctx context.Context, message *messageDomain.Message) error
	// ListByRoom returns messages newest first.
	ListByRoom(ctx context.Context, roomID uuid.UUID, offset, limit int) ([]*messageDomain.Message, error)
	Get(ctx context.Context, messageID uuid.UUID) (*messageDomain.Message, error)
}

// AttachmentRepository defines the interface for Attachment persistence operations.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *messageDomain.Attachment) error
	ListByMessages(ctx context.Context, messageIDs []uuid.UUID) ([]*messageDomain.Attachment, error)
	Get(ctx context.Context, attachmentID uuid.UUID) (*messageDomain.Attachment, error)
}

// RoomStore is the subset of room persistence the message use case needs: the key
// envelope lookup and the activity timestamp.
type RoomStore interface {
	Get(ctx context.Context, roomID uuid.UUID) (*roomDomain.Room, error)
	Touch(ctx context.Context, roomID uuid.UUID, at time.Time) error
}

// BlobStore stores attachment contents under opaque keys.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Publisher announces new messages to live connections.
type Publisher interface {
	Publish(ctx context.Context, notice messageDomain.Notice) error
}

// SendMessageInput carries the parameters of MessageUseCase.Send.
type SendMessageInput struct {
	SenderID       uuid.UUID
	SenderUsername string
	RoomID         uuid.UUID
	Plaintext      string
	Attachment     *messageDomain.AttachmentUpload
}

// MessageUseCase defines the interface for message business logic.
type MessageUseCase interface {
	// Send encrypts and stores a message, with an optional attachment, and publishes a
	// notice for it. Notice failures are logged and never fail the send.
	Send(ctx context.Context, input SendMessageInput) (*messageDomain.Message, error)

	// Fetch returns a decrypted page of the room's messages, oldest first. The page holds
	// the most recent limit messages after skipping offset. A message that fails to
	// decrypt fails the whole page.
	Fetch(ctx context.Context, readerID, roomID uuid.UUID, offset, limit int) ([]*messageDomain.Message, error)

	// Get returns one decrypted message of the room, typically the one named by a notice.
	Get(ctx context.Context, readerID, roomID, messageID uuid.UUID) (*messageDomain.Message, error)

	// GetAttachment opens an attachment for a member of its room. The caller closes Content.
	GetAttachment(ctx context.Context, userID, attachmentID uuid.UUID) (*messageDomain.AttachmentContent, error)
}
