// Package http provides HTTP handlers for messages and attachments.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/tnptm/next-djchat/internal/auth/domain"
	authHTTP "github.com/tnptm/next-djchat/internal/auth/http"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	"github.com/tnptm/next-djchat/internal/httputil"
	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
	"github.com/tnptm/next-djchat/internal/message/http/dto"
	messageUseCase "github.com/tnptm/next-djchat/internal/message/usecase"
	roomHTTP "github.com/tnptm/next-djchat/internal/room/http"
	customValidation "github.com/tnptm/next-djchat/internal/validation"
)

// multipartOverhead is the room left for form fields and part headers around the file.
const multipartOverhead = 1 << 20

// MessageHandler handles HTTP requests for messages and attachment downloads.
type MessageHandler struct {
	messageUseCase    messageUseCase.MessageUseCase
	fileURL           dto.FileURLFunc
	maxAttachmentSize int64
	logger            *slog.Logger
}

// NewMessageHandler creates a new message handler. fileURL builds the download link
// included with every attachment.
func NewMessageHandler(
	messageUseCase messageUseCase.MessageUseCase,
	fileURL dto.FileURLFunc,
	maxAttachmentSize int64,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		messageUseCase:    messageUseCase,
		fileURL:           fileURL,
		maxAttachmentSize: maxAttachmentSize,
		logger:            logger,
	}
}

// SendHandler stores a text message.
// POST /v1/rooms/:id/messages - Returns 201 Created with the decrypted message.
func (h *MessageHandler) SendHandler(c *gin.Context) {
	principal, roomID, ok := h.principalAndRoom(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	message, err := h.messageUseCase.Send(c.Request.Context(), messageUseCase.SendMessageInput{
		SenderID:       principal.ID,
		SenderUsername: principal.Username,
		RoomID:         roomID,
		Plaintext:      req.Plaintext,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapMessageToResponse(message, h.fileURL))
}

// UploadHandler stores a file as a message with one attachment. The optional plaintext
// form field becomes the message text.
// POST /v1/rooms/:id/files (multipart: file, plaintext) - Returns 201 Created.
func (h *MessageHandler) UploadHandler(c *gin.Context) {
	principal, roomID, ok := h.principalAndRoom(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAttachmentSize+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httputil.HandleErrorGin(c, messageDomain.ErrAttachmentTooLarge, h.logger)
			return
		}
		httputil.HandleBadRequestGin(c, fmt.Errorf("file is required: %w", err), h.logger)
		return
	}

	plaintext := c.PostForm("plaintext")
	if len(plaintext) > dto.MaxPlaintextLength {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrInvalidInput, "plaintext is too long"), h.logger)
		return
	}

	file, err := header.Open()
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(err, "failed to open uploaded file"), h.logger)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	message, err := h.messageUseCase.Send(c.Request.Context(), messageUseCase.SendMessageInput{
		SenderID:       principal.ID,
		SenderUsername: principal.Username,
		RoomID:         roomID,
		Plaintext:      plaintext,
		Attachment: &messageDomain.AttachmentUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Content:     file,
		},
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapMessageToResponse(message, h.fileURL))
}

// ListHandler returns a page of decrypted messages, oldest first.
// GET /v1/rooms/:id/messages?offset=0&limit=100
func (h *MessageHandler) ListHandler(c *gin.Context) {
	principal, roomID, ok := h.principalAndRoom(c)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c, 100, 500)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	messages, err := h.messageUseCase.Fetch(c.Request.Context(), principal.ID, roomID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMessagesToListResponse(messages, h.fileURL))
}

// GetHandler returns one decrypted message, typically the one named by a realtime notice.
// GET /v1/rooms/:id/messages/:message_id
func (h *MessageHandler) GetHandler(c *gin.Context) {
	principal, roomID, ok := h.principalAndRoom(c)
	if !ok {
		return
	}

	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid message id: must be a UUID"), h.logger)
		return
	}

	message, err := h.messageUseCase.Get(c.Request.Context(), principal.ID, roomID, messageID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMessageToResponse(message, h.fileURL))
}

// DownloadHandler streams an attachment to a member of its room under its original filename.
// GET /v1/attachments/:id
func (h *MessageHandler) DownloadHandler(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	attachmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid attachment id: must be a UUID"), h.logger)
		return
	}

	content, err := h.messageUseCase.GetAttachment(c.Request.Context(), principal.ID, attachmentID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer func() {
		_ = content.Content.Close()
	}()

	attachment := content.Attachment
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": attachment.Filename})
	if disposition == "" {
		disposition = "attachment"
	}

	c.DataFromReader(http.StatusOK, attachment.Size, attachment.ContentType, content.Content, map[string]string{
		"Content-Disposition":    disposition,
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "private, max-age=0",
	})
}

func (h *MessageHandler) principal(c *gin.Context) (*authDomain.Principal, bool) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, false
	}
	return principal, true
}

func (h *MessageHandler) principalAndRoom(c *gin.Context) (*authDomain.Principal, uuid.UUID, bool) {
	principal, ok := h.principal(c)
	if !ok {
		return nil, uuid.Nil, false
	}

	roomID, err := roomHTTP.ParseRoomID(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return nil, uuid.Nil, false
	}
	return principal, roomID, true
}
