// Package domain defines encrypted messages, their attachments and the notice published
// when a message is stored.
package domain

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// DefaultAttachmentContentType is used when an upload declares no content type.
const DefaultAttachmentContentType = "application/octet-stream"

// Message is a message encrypted under its room's key.
type Message struct {
	ID     uuid.UUID
	RoomID uuid.UUID
	// SenderID is nil once the sender's account has been removed.
	SenderID       *uuid.UUID
	SenderUsername *string
	Ciphertext     []byte
	Nonce          []byte
	// Plaintext is only populated in memory after decryption and is never persisted.
	Plaintext   []byte
	CreatedAt   time.Time
	Attachments []*Attachment
}

// Attachment is a file stored in the blob store and linked to a message.
type Attachment struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	// RoomID is filled by reads that join the owning message.
	RoomID  uuid.UUID
	BlobKey string
	// EncryptedFilename is encrypted under the room key with its own FilenameNonce.
	EncryptedFilename []byte
	FilenameNonce     []byte
	Size              int64
	ContentType       string
	UploadedAt        time.Time
	// Filename is only populated in memory after decryption.
	Filename string
}

// AttachmentUpload is a file supplied with a message. Size and ContentType are trusted as declared.
type AttachmentUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// AttachmentContent is an opened attachment ready to be streamed to a member.
type AttachmentContent struct {
	Attachment *Attachment
	Content    io.ReadCloser
}

// Notice is the real-time event published for a new message. It never carries content.
type Notice struct {
	RoomID    uuid.UUID
	MessageID uuid.UUID
}
