package dto

import (
	"time"

	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
)

// FileURLFunc builds the absolute download URL of an attachment.
type FileURLFunc func(attachmentID string) string

// AttachmentResponse represents an attachment in API responses.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	FileURL     string    `json:"file_url"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// MessageResponse represents a decrypted message in API responses.
type MessageResponse struct {
	ID       string  `json:"id"`
	RoomID   string  `json:"room_id"`
	SenderID *string `json:"sender_id"`
	// Sender is the sender's username, null once the account is gone.
	Sender      *string              `json:"sender"`
	Plaintext   string               `json:"plaintext"`
	CreatedAt   time.Time            `json:"created_at"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// ListMessagesResponse wraps a page of messages, oldest first.
type ListMessagesResponse struct {
	Data []MessageResponse `json:"data"`
}

// MapMessageToResponse converts a decrypted message to its API representation.
func MapMessageToResponse(message *messageDomain.Message, fileURL FileURLFunc) MessageResponse {
	var senderID *string
	if message.SenderID != nil {
		id := message.SenderID.String()
		senderID = &id
	}

	attachments := make([]AttachmentResponse, 0, len(message.Attachments))
	for _, a := range message.Attachments {
		attachments = append(attachments, AttachmentResponse{
			ID:          a.ID.String(),
			Filename:    a.Filename,
			FileURL:     fileURL(a.ID.String()),
			FileSize:    a.Size,
			ContentType: a.ContentType,
			UploadedAt:  a.UploadedAt,
		})
	}

	return MessageResponse{
		ID:          message.ID.String(),
		RoomID:      message.RoomID.String(),
		SenderID:    senderID,
		Sender:      message.SenderUsername,
		Plaintext:   string(message.Plaintext),
		CreatedAt:   message.CreatedAt,
		Attachments: attachments,
	}
}

// MapMessagesToListResponse converts a page of decrypted messages.
func MapMessagesToListResponse(messages []*messageDomain.Message, fileURL FileURLFunc) ListMessagesResponse {
	data := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		data = append(data, MapMessageToResponse(m, fileURL))
	}
	return ListMessagesResponse{Data: data}
}
