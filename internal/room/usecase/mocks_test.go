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
	"github.com/tnptm/next-djchat/internal/metrics"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// fakeTxManager runs fn inline and counts transactions.
type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type mockRoomRepository struct {
	mock.Mock
}

func (m *mockRoomRepository) Create(ctx context.Context, room *roomDomain.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *mockRoomRepository) Get(ctx context.Context, roomID uuid.UUID) (*roomDomain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(uuid.UUID) *roomDomain.Room); ok {
		return fn(roomID), args.Error(1)
	}
	return args.Get(0).(*roomDomain.Room), args.Error(1)
}

func (m *mockRoomRepository) ListByMember(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*roomDomain.Room, error) {
	args := m.Called(ctx, userID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*roomDomain.Room), args.Error(1)
}

func (m *mockRoomRepository) ListKeyEnvelopes(ctx context.Context, offset, limit int) ([]*roomDomain.Room, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*roomDomain.Room), args.Error(1)
}

func (m *mockRoomRepository) UpdateKeyEnvelope(ctx context.Context, roomID uuid.UUID, envelope []byte) error {
	return m.Called(ctx, roomID, envelope).Error(0)
}

func (m *mockRoomRepository) Touch(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	return m.Called(ctx, roomID, at).Error(0)
}

func (m *mockRoomRepository) Delete(ctx context.Context, roomID uuid.UUID) error {
	return m.Called(ctx, roomID).Error(0)
}

type mockMembershipRepository struct {
	mock.Mock
}

func (m *mockMembershipRepository) CreateIfNotExists(
	ctx context.Context,
	membership *roomDomain.Membership,
) (bool, error) {
	args := m.Called(ctx, membership)
	return args.Bool(0), args.Error(1)
}

func (m *mockMembershipRepository) Exists(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockMembershipRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]roomDomain.Member, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]roomDomain.Member), args.Error(1)
}

func (m *mockMembershipRepository) Count(ctx context.Context, roomID uuid.UUID) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*roomDomain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*roomDomain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*roomDomain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*roomDomain.User), args.Error(1)
}

type mockAttachmentKeyLister struct {
	mock.Mock
}

func (m *mockAttachmentKeyLister) ListBlobKeysByRoom(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockBlobDeleter struct {
	mock.Mock
}

func (m *mockBlobDeleter) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
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

type mockRoomUseCase struct {
	mock.Mock
}

func (m *mockRoomUseCase) Create(ctx context.Context, input CreateRoomInput) (*roomDomain.RoomDetail, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*roomDomain.RoomDetail), args.Error(1)
}

func (m *mockRoomUseCase) AddMember(
	ctx context.Context,
	actorID, roomID uuid.UUID,
	username string,
) (*roomDomain.Membership, bool, error) {
	args := m.Called(ctx, actorID, roomID, username)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*roomDomain.Membership), args.Bool(1), args.Error(2)
}

func (m *mockRoomUseCase) Get(ctx context.Context, userID, roomID uuid.UUID) (*roomDomain.RoomDetail, error) {
	args := m.Called(ctx, userID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*roomDomain.RoomDetail), args.Error(1)
}

func (m *mockRoomUseCase) ListForUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*roomDomain.RoomDetail, error) {
	args := m.Called(ctx, userID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*roomDomain.RoomDetail), args.Error(1)
}

func (m *mockRoomUseCase) Delete(ctx context.Context, actorID, roomID uuid.UUID) error {
	return m.Called(ctx, actorID, roomID).Error(0)
}

func (m *mockRoomUseCase) RewrapKeys(
	ctx context.Context,
	previous cryptoService.KeyVault,
	batchSize int,
) (int, error) {
	args := m.Called(ctx, previous, batchSize)
	return args.Int(0), args.Error(1)
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
