package usecase

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
	messageDomain "github.com/tnptm/next-djchat/internal/message/domain"
	"github.com/tnptm/next-djchat/internal/metrics"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type mockMessageRepository struct {
	mock.Mock
}

func (m *mockMessageRepository) Create(ctx context.Context, message *messageDomain.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *mockMessageRepository) ListByRoom(
	ctx context.Context,
	roomID uuid.UUID,
	offset, limit int,
) ([]*messageDomain.Message, error) {
	args := m.Called(ctx, roomID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*messageDomain.Message), args.Error(1)
}

func (m *mockMessageRepository) Get(ctx context.Context, messageID uuid.UUID) (*messageDomain.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messageDomain.Message), args.Error(1)
}

type mockAttachmentRepository struct {
	mock.Mock
}

func (m *mockAttachmentRepository) Create(ctx context.Context, attachment *messageDomain.Attachment) error {
	return m.Called(ctx, attachment).Error(0)
}

func (m *mockAttachmentRepository) ListByMessages(
	ctx context.Context,
	messageIDs []uuid.UUID,
) ([]*messageDomain.Attachment, error) {
	args := m.Called(ctx, messageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*messageDomain.Attachment), args.Error(1)
}

func (m *mockAttachmentRepository) Get(
	ctx context.Context,
	attachmentID uuid.UUID,
) (*messageDomain.Attachment, error) {
	args := m.Called(ctx, attachmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messageDomain.Attachment), args.Error(1)
}

type mockRoomStore struct {
	mock.Mock
}

func (m *mockRoomStore) Get(ctx context.Context, roomID uuid.UUID) (*roomDomain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*roomDomain.Room), args.Error(1)
}

func (m *mockRoomStore) Touch(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	return m.Called(ctx, roomID, at).Error(0)
}

type mockMembershipReader struct {
	mock.Mock
}

func (m *mockMembershipReader) Exists(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return m.Called(ctx, key, r, size, contentType).Error(0)
}

func (m *mockBlobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, notice messageDomain.Notice) error {
	return m.Called(ctx, notice).Error(0)
}

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

type mockMessageUseCase struct {
	mock.Mock
}

func (m *mockMessageUseCase) Send(ctx context.Context, input SendMessageInput) (*messageDomain.Message, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messageDomain.Message), args.Error(1)
}

func (m *mockMessageUseCase) Fetch(
	ctx context.Context,
	readerID, roomID uuid.UUID,
	offset, limit int,
) ([]*messageDomain.Message, error) {
	args := m.Called(ctx, readerID, roomID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*messageDomain.Message), args.Error(1)
}

func (m *mockMessageUseCase) Get(
	ctx context.Context,
	readerID, roomID, messageID uuid.UUID,
) (*messageDomain.Message, error) {
	args := m.Called(ctx, readerID, roomID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messageDomain.Message), args.Error(1)
}

func (m *mockMessageUseCase) GetAttachment(
	ctx context.Context,
	userID, attachmentID uuid.UUID,
) (*messageDomain.AttachmentContent, error) {
	args := m.Called(ctx, userID, attachmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messageDomain.AttachmentContent), args.Error(1)
}

func newTestKeyVault(t *testing.T) *cryptoService.KeyVaultService {
	t.Helper()
	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	masterKey, err := cryptoDomain.NewMasterKey("test", key)
	require.NoError(t, err)
	return cryptoService.NewKeyVault(cryptoService.NewAEADManager(), masterKey, cryptoDomain.AESGCM)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
