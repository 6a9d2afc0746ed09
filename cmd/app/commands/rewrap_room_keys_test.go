package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
)

type MockRoomKeyRewrapper struct {
	mock.Mock
}

func (m *MockRoomKeyRewrapper) RewrapKeys(
	ctx context.Context,
	previous cryptoService.KeyVault,
	batchSize int,
) (int, error) {
	args := m.Called(ctx, previous, batchSize)
	return args.Int(0), args.Error(1)
}

func TestRunRewrapRoomKeys(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success", func(t *testing.T) {
		rooms := &MockRoomKeyRewrapper{}
		rooms.On("RewrapKeys", ctx, nil, 50).Return(12, nil)

		var out bytes.Buffer
		err := RunRewrapRoomKeys(ctx, rooms, nil, logger, &out, 50)
		require.NoError(t, err)
		require.Equal(t, "rewrapped 12 room keys\n", out.String())

		rooms.AssertExpectations(t)
	})

	t.Run("invalid-batch-size", func(t *testing.T) {
		rooms := &MockRoomKeyRewrapper{}

		err := RunRewrapRoomKeys(ctx, rooms, nil, logger, &bytes.Buffer{}, 0)
		require.Error(t, err)
		require.Contains(t, err.Error(), "batch-size must be greater than 0")
		rooms.AssertNotCalled(t, "RewrapKeys", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rewrap-error", func(t *testing.T) {
		rooms := &MockRoomKeyRewrapper{}
		rooms.On("RewrapKeys", ctx, nil, 100).Return(3, errors.New("integrity"))

		var out bytes.Buffer
		err := RunRewrapRoomKeys(ctx, rooms, nil, logger, &out, 100)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to rewrap room keys")
		require.Empty(t, out.String())
	})
}
