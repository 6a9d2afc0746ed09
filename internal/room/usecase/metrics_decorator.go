package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
	"github.com/tnptm/next-djchat/internal/metrics"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// roomUseCaseWithMetrics decorates RoomUseCase with metrics instrumentation.
type roomUseCaseWithMetrics struct {
	next    RoomUseCase
	metrics metrics.BusinessMetrics
}

// NewRoomUseCaseWithMetrics wraps a RoomUseCase with metrics recording.
func NewRoomUseCaseWithMetrics(useCase RoomUseCase, m metrics.BusinessMetrics) RoomUseCase {
	return &roomUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *roomUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := metrics.Status(err)
	r.metrics.RecordOperation(ctx, "rooms", operation, status)
	r.metrics.RecordDuration(ctx, "rooms", operation, time.Since(start), status)
}

// Create records metrics for room creation.
func (r *roomUseCaseWithMetrics) Create(ctx context.Context, input CreateRoomInput) (*roomDomain.RoomDetail, error) {
	start := time.Now()
	detail, err := r.next.Create(ctx, input)
	r.record(ctx, "room_create", start, err)
	return detail, err
}

// AddMember records metrics for invitations.
func (r *roomUseCaseWithMetrics) AddMember(
	ctx context.Context,
	actorID, roomID uuid.UUID,
	username string,
) (*roomDomain.Membership, bool, error) {
	start := time.Now()
	membership, created, err := r.next.AddMember(ctx, actorID, roomID, username)
	r.record(ctx, "room_add_member", start, err)
	return membership, created, err
}

// Get records metrics for room detail reads.
func (r *roomUseCaseWithMetrics) Get(ctx context.Context, userID, roomID uuid.UUID) (*roomDomain.RoomDetail, error) {
	start := time.Now()
	detail, err := r.next.Get(ctx, userID, roomID)
	r.record(ctx, "room_get", start, err)
	return detail, err
}

// ListForUser records metrics for room listings.
func (r *roomUseCaseWithMetrics) ListForUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*roomDomain.RoomDetail, error) {
	start := time.Now()
	details, err := r.next.ListForUser(ctx, userID, offset, limit)
	r.record(ctx, "room_list", start, err)
	return details, err
}

// Delete records metrics for room deletion.
func (r *roomUseCaseWithMetrics) Delete(ctx context.Context, actorID, roomID uuid.UUID) error {
	start := time.Now()
	err := r.next.Delete(ctx, actorID, roomID)
	r.record(ctx, "room_delete", start, err)
	return err
}

// RewrapKeys records metrics for master key re-wrapping.
func (r *roomUseCaseWithMetrics) RewrapKeys(
	ctx context.Context,
	previous cryptoService.KeyVault,
	batchSize int,
) (int, error) {
	start := time.Now()
	count, err := r.next.RewrapKeys(ctx, previous, batchSize)
	r.record(ctx, "room_rewrap_keys", start, err)
	return count, err
}
