package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
	roomService "github.com/tnptm/next-djchat/internal/room/service"
)

// messageUseCase implements the MessageUseCase interface.
type messageUseCase struct {
	txManager         database.TxManager
	messageRepo       MessageRepository
	attachmentRepo    AttachmentRepository
	rooms             RoomStore
	guard             roomService.MembershipGuard
	keyVault          cryptoService.KeyVault
	cipher            cryptoService.MessageCipher
	blobs             BlobStore
	publisher         Publisher
	maxAttachmentSize int64
	logger            *slog.Logger
}

// Send encrypts the message under the room key and stores it. An attachment's contents
// go to the blob store before the rows are written and are removed again if the write fails.
func (m *messageUseCase) Send(ctx context.Context, input SendMessageInput) (*messageDomain.Message, error) {
	if err := m.guard.RequireWrite(ctx, input.SenderID, input.RoomID); err != nil {
		return nil, err
	}

	upload := input.Attachment
	if upload != nil {
		if err := m.validateUpload(upload); err != nil {
			return nil, err
		}
	}

	text := input.Plaintext
	if text == "" {
		if upload == nil {
			return nil, messageDomain.ErrEmptyMessage
		}
		text = "Shared file: " + upload.Filename
	}

	roomKey, err := m.unwrapRoomKey(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}
	defer roomKey.Close()

	ciphertext, nonce, err := m.cipher.Encrypt(roomKey, []byte(text))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	senderID := input.SenderID
	message := &messageDomain.Message{
		ID:          uuid.Must(uuid.NewV7()),
		RoomID:      input.RoomID,
		SenderID:    &senderID,
		Ciphertext:  ciphertext,
		Nonce:       nonce,
		Plaintext:   []byte(text),
		CreatedAt:   now,
		Attachments: []*messageDomain.Attachment{},
	}
	if input.SenderUsername != "" {
		username := input.SenderUsername
		message.SenderUsername = &username
	}

	var attachment *messageDomain.Attachment
	if upload != nil {
		attachment, err = m.storeUpload(ctx, roomKey, message, upload, now)
		if err != nil {
			return nil, err
		}
		message.Attachments = append(message.Attachments, attachment)
	}

	err = m.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := m.messageRepo.Create(txCtx, message); err != nil {
			return err
		}
		if attachment != nil {
			if err := m.attachmentRepo.Create(txCtx, attachment); err != nil {
				return err
			}
		}
		return m.rooms.Touch(txCtx, input.RoomID, now)
	})
	if err != nil {
		if attachment != nil {
			m.deleteBlob(ctx, attachment.BlobKey)
		}
		return nil, err
	}

	notice := messageDomain.Notice{RoomID: message.RoomID, MessageID: message.ID}
	if err := m.publisher.Publish(ctx, notice); err != nil {
		m.logger.Warn("failed to publish message notice",
			slog.String("room_id", message.RoomID.String()),
			slog.String("message_id", message.ID.String()),
			slog.Any("error", err),
		)
	}

	return message, nil
}

// Fetch lists the page newest first, decrypts it with a single unwrap and returns it oldest first.
func (m *messageUseCase) Fetch(
	ctx context.Context,
	readerID, roomID uuid.UUID,
	offset, limit int,
) ([]*messageDomain.Message, error) {
	if err := m.guard.RequireRead(ctx, readerID, roomID); err != nil {
		return nil, err
	}

	messages, err := m.messageRepo.ListByRoom(ctx, roomID, offset, limit)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	roomKey, err := m.unwrapRoomKey(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer roomKey.Close()

	if err := m.decryptPage(ctx, roomKey, roomID, messages); err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}

// Get decrypts a single message. A message of another room is reported as not found.
func (m *messageUseCase) Get(
	ctx context.Context,
	readerID, roomID, messageID uuid.UUID,
) (*messageDomain.Message, error) {
	if err := m.guard.RequireRead(ctx, readerID, roomID); err != nil {
		return nil, err
	}

	message, err := m.messageRepo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.RoomID != roomID {
		return nil, messageDomain.ErrMessageNotFound
	}

	roomKey, err := m.unwrapRoomKey(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer roomKey.Close()

	if err := m.decryptPage(ctx, roomKey, roomID, []*messageDomain.Message{message}); err != nil {
		return nil, err
	}
	return message, nil
}

// GetAttachment checks membership of the attachment's room before opening the blob.
func (m *messageUseCase) GetAttachment(
	ctx context.Context,
	userID, attachmentID uuid.UUID,
) (*messageDomain.AttachmentContent, error) {
	attachment, err := m.attachmentRepo.Get(ctx, attachmentID)
	if apperrors.Is(err, messageDomain.ErrAttachmentNotFound) {
		// Unknown ids look the same as rooms the caller cannot read.
		return nil, roomDomain.ErrNotRoomMember
	}
	if err != nil {
		return nil, err
	}
	if err := m.guard.RequireRead(ctx, userID, attachment.RoomID); err != nil {
		return nil, err
	}

	roomKey, err := m.unwrapRoomKey(ctx, attachment.RoomID)
	if err != nil {
		return nil, err
	}
	defer roomKey.Close()

	if err := m.decryptFilename(roomKey, attachment); err != nil {
		return nil, err
	}

	content, err := m.blobs.Open(ctx, attachment.BlobKey)
	if err != nil {
		return nil, err
	}
	return &messageDomain.AttachmentContent{Attachment: attachment, Content: content}, nil
}

// decryptPage decrypts messages and their attachment filenames in place. The first
// failure aborts the page.
func (m *messageUseCase) decryptPage(
	ctx context.Context,
	roomKey *cryptoDomain.RoomKey,
	roomID uuid.UUID,
	messages []*messageDomain.Message,
) error {
	ids := make([]uuid.UUID, 0, len(messages))
	byID := make(map[uuid.UUID]*messageDomain.Message, len(messages))
	for _, message := range messages {
		plaintext, err := m.cipher.Decrypt(roomKey, message.Ciphertext, message.Nonce)
		if err != nil {
			m.logger.Error("failed to decrypt message",
				slog.String("room_id", roomID.String()),
				slog.String("message_id", message.ID.String()),
			)
			return err
		}
		message.Plaintext = plaintext
		message.Attachments = []*messageDomain.Attachment{}
		ids = append(ids, message.ID)
		byID[message.ID] = message
	}

	attachments, err := m.attachmentRepo.ListByMessages(ctx, ids)
	if err != nil {
		return err
	}
	for _, attachment := range attachments {
		if err := m.decryptFilename(roomKey, attachment); err != nil {
			return err
		}
		if message, ok := byID[attachment.MessageID]; ok {
			message.Attachments = append(message.Attachments, attachment)
		}
	}
	return nil
}

func (m *messageUseCase) validateUpload(upload *messageDomain.AttachmentUpload) error {
	if strings.TrimSpace(upload.Filename) == "" || upload.Size < 0 || upload.Content == nil {
		return messageDomain.ErrInvalidAttachment
	}
	if m.maxAttachmentSize > 0 && upload.Size > m.maxAttachmentSize {
		return messageDomain.ErrAttachmentTooLarge
	}
	return nil
}

func (m *messageUseCase) storeUpload(
	ctx context.Context,
	roomKey *cryptoDomain.RoomKey,
	message *messageDomain.Message,
	upload *messageDomain.AttachmentUpload,
	now time.Time,
) (*messageDomain.Attachment, error) {
	encryptedFilename, filenameNonce, err := m.cipher.Encrypt(roomKey, []byte(upload.Filename))
	if err != nil {
		return nil, err
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = messageDomain.DefaultAttachmentContentType
	}

	attachmentID := uuid.Must(uuid.NewV7())
	attachment := &messageDomain.Attachment{
		ID:                attachmentID,
		MessageID:         message.ID,
		RoomID:            message.RoomID,
		BlobKey:           blobKey(message.RoomID, attachmentID),
		EncryptedFilename: encryptedFilename,
		FilenameNonce:     filenameNonce,
		Size:              upload.Size,
		ContentType:       contentType,
		UploadedAt:        now,
		Filename:          upload.Filename,
	}

	if err := m.blobs.Put(ctx, attachment.BlobKey, upload.Content, upload.Size, contentType); err != nil {
		return nil, err
	}
	return attachment, nil
}

func (m *messageUseCase) decryptFilename(roomKey *cryptoDomain.RoomKey, attachment *messageDomain.Attachment) error {
	filename, err := m.cipher.Decrypt(roomKey, attachment.EncryptedFilename, attachment.FilenameNonce)
	if err != nil {
		m.logger.Error("failed to decrypt attachment filename",
			slog.String("room_id", attachment.RoomID.String()),
			slog.String("attachment_id", attachment.ID.String()),
		)
		return err
	}
	attachment.Filename = string(filename)
	return nil
}

// unwrapRoomKey loads the room's envelope and opens it. The caller closes the key.
func (m *messageUseCase) unwrapRoomKey(ctx context.Context, roomID uuid.UUID) (*cryptoDomain.RoomKey, error) {
	room, err := m.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	roomKey, err := m.keyVault.Unwrap(room.KeyEnvelope)
	if err != nil {
		m.logger.Error("failed to unwrap room key", slog.String("room_id", roomID.String()))
		return nil, err
	}
	return roomKey, nil
}

func (m *messageUseCase) deleteBlob(ctx context.Context, key string) {
	if err := m.blobs.Delete(ctx, key); err != nil {
		m.logger.Warn("failed to delete orphaned attachment blob",
			slog.String("blob_key", key),
			slog.Any("error", err),
		)
	}
}

func blobKey(roomID, attachmentID uuid.UUID) string {
	return fmt.Sprintf("rooms/%s/%s", roomID, attachmentID)
}

// NewMessageUseCase creates a new MessageUseCase.
func NewMessageUseCase(
	txManager database.TxManager,
	messageRepo MessageRepository,
	attachmentRepo AttachmentRepository,
	rooms RoomStore,
	guard roomService.MembershipGuard,
	keyVault cryptoService.KeyVault,
	cipher cryptoService.MessageCipher,
	blobs BlobStore,
	publisher Publisher,
	maxAttachmentSize int64,
	logger *slog.Logger,
) MessageUseCase {
	return &messageUseCase{
		txManager:         txManager,
		messageRepo:       messageRepo,
		attachmentRepo:    attachmentRepo,
		rooms:             rooms,
		guard:             guard,
		keyVault:          keyVault,
		cipher:            cipher,
		blobs:             blobs,
		publisher:         publisher,
		maxAttachmentSize: maxAttachmentSize,
		logger:            logger,
	}
}
