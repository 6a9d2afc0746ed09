package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
	"github.com/tnptm/next-djchat/internal/metrics"
)

// messageUseCaseWithMetrics decorates MessageUseCase with metrics instrumentation.
type messageUseCaseWithMetrics struct {
	next    MessageUseCase
	metrics metrics.BusinessMetrics
}

// NewMessageUseCaseWithMetrics wraps a MessageUseCase with metrics recording.
func NewMessageUseCaseWithMetrics(useCase MessageUseCase, m metrics.BusinessMetrics) MessageUseCase {
	return &messageUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (m *messageUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.Status(err)
	m.metrics.RecordOperation(ctx, "messages", operation, status)
	m.metrics.RecordDuration(ctx, "messages", operation, time.Since(start), status)
}

// Send records metrics for message sends.
func (m *messageUseCaseWithMetrics) Send(ctx context.Context, input SendMessageInput) (*messageDomain.Message, error) {
	start := time.Now()
	message, err := m.next.Send(ctx, input)
	m.record(ctx, "message_send", start, err)
	return message, err
}

// Fetch records metrics for message page reads.
func (m *messageUseCaseWithMetrics) Fetch(
	ctx context.Context,
	readerID, roomID uuid.UUID,
	offset, limit int,
) ([]*messageDomain.Message, error) {
	start := time.Now()
	messages, err := m.next.Fetch(ctx, readerID, roomID, offset, limit)
	m.record(ctx, "message_fetch", start, err)
	return messages, err
}

// Get records metrics for single message reads.
func (m *messageUseCaseWithMetrics) Get(
	ctx context.Context,
	readerID, roomID, messageID uuid.UUID,
) (*messageDomain.Message, error) {
	start := time.Now()
	message, err := m.next.Get(ctx, readerID, roomID, messageID)
	m.record(ctx, "message_get", start, err)
	return message, err
}

// GetAttachment records metrics for attachment downloads.
func (m *messageUseCaseWithMetrics) GetAttachment(
	ctx context.Context,
	userID, attachmentID uuid.UUID,
) (*messageDomain.AttachmentContent, error) {
	start := time.Now()
	content, err := m.next.GetAttachment(ctx, userID, attachmentID)
	m.record(ctx, "attachment_get", start, err)
	return content, err
}
