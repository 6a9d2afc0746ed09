package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
)

func TestMessageUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Send_Success", func(t *testing.T) {
		next := &mockMessageUseCase{}
		m := &mockBusinessMetrics{}
		decorated := NewMessageUseCaseWithMetrics(next, m)

		input := SendMessageInput{SenderID: uuid.New(), RoomID: uuid.New(), Plaintext: "hi"}
		expected := &messageDomain.Message{ID: uuid.New()}
		next.On("Send", ctx, input).Return(expected, nil).Once()
		m.On("RecordOperation", ctx, "messages", "message_send", "success").Once()
		m.On("RecordDuration", ctx, "messages", "message_send", mock.AnythingOfType("time.Duration"), "success").Once()

		message, err := decorated.Send(ctx, input)

		assert.NoError(t, err)
		assert.Equal(t, expected, message)
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("Fetch_Error", func(t *testing.T) {
		next := &mockMessageUseCase{}
		m := &mockBusinessMetrics{}
		decorated := NewMessageUseCaseWithMetrics(next, m)

		reader, room := uuid.New(), uuid.New()
		fetchErr := errors.New("boom")
		next.On("Fetch", ctx, reader, room, 0, 10).Return(nil, fetchErr).Once()
		m.On("RecordOperation", ctx, "messages", "message_fetch", "error").Once()
		m.On("RecordDuration", ctx, "messages", "message_fetch", mock.AnythingOfType("time.Duration"), "error").Once()

		_, err := decorated.Fetch(ctx, reader, room, 0, 10)

		assert.ErrorIs(t, err, fetchErr)
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("GetAttachment_Success", func(t *testing.T) {
		next := &mockMessageUseCase{}
		m := &mockBusinessMetrics{}
		decorated := NewMessageUseCaseWithMetrics(next, m)

		user, attachment := uuid.New(), uuid.New()
		next.On("GetAttachment", ctx, user, attachment).Return(&messageDomain.AttachmentContent{}, nil).Once()
		m.On("RecordOperation", ctx, "messages", "attachment_get", "success").Once()
		m.On("RecordDuration", ctx, "messages", "attachment_get", mock.AnythingOfType("time.Duration"), "success").Once()

		_, err := decorated.GetAttachment(ctx, user, attachment)

		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
}
