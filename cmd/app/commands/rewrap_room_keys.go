package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
)

// RoomKeyRewrapper moves room key envelopes from a retired master key to the current one.
type RoomKeyRewrapper interface {
	RewrapKeys(ctx context.Context, previous cryptoService.KeyVault, batchSize int) (int, error)
}

// RunRewrapRoomKeys re-wraps every room key that opens under previous so that it opens
// under the current master key. Rooms already on the current key are skipped, so the
// command can be re-run after a partial failure.
func RunRewrapRoomKeys(
	ctx context.Context,
	rooms RoomKeyRewrapper,
	previous cryptoService.KeyVault,
	logger *slog.Logger,
	writer io.Writer,
	batchSize int,
) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	logger.Info("starting room key rewrap process", slog.Int("batch_size", batchSize))

	total, err := rooms.RewrapKeys(ctx, previous, batchSize)
	if err != nil {
		logger.Error("room key rewrap stopped",
			slog.Int("total_rewrapped", total),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to rewrap room keys: %w", err)
	}

	logger.Info("room key rewrap process completed", slog.Int("total_rewrapped", total))
	_, _ = fmt.Fprintf(writer, "rewrapped %d room keys\n", total)
	return nil
}
