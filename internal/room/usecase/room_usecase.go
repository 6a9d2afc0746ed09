package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
	"github.com/tnptm/next-djchat/internal/database"
	apperrors "github.com/tnptm/next-djchat/internal/errors"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
	roomService "github.com/tnptm/next-djchat/internal/room/service"
)

// roomUseCase implements the RoomUseCase interface.
type roomUseCase struct {
	txManager      database.TxManager
	roomRepo       RoomRepository
	membershipRepo MembershipRepository
	attachmentKeys AttachmentKeyLister
	blobs          BlobDeleter
	guard          roomService.MembershipGuard
	keyVault       cryptoService.KeyVault
	logger         *slog.Logger
}

// Create generates the room key and persists the room with its memberships in one transaction.
func (r *roomUseCase) Create(ctx context.Context, input CreateRoomInput) (*roomDomain.RoomDetail, error) {
	visibility := input.Visibility
	if visibility == "" {
		visibility = roomDomain.Private
	}

	roomKey, err := r.keyVault.GenerateRoomKey()
	if err != nil {
		return nil, err
	}
	defer roomKey.Close()

	envelope, err := r.keyVault.Wrap(roomKey)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	room := &roomDomain.Room{
		ID:          uuid.Must(uuid.NewV7()),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Visibility:  visibility,
		OwnerID:     input.OwnerID,
		KeyEnvelope: envelope,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = r.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := r.roomRepo.Create(txCtx, room); err != nil {
			return err
		}

		owner := &roomDomain.Membership{
			ID:       uuid.Must(uuid.NewV7()),
			RoomID:   room.ID,
			UserID:   input.OwnerID,
			JoinedAt: now,
		}
		if _, err := r.membershipRepo.CreateIfNotExists(txCtx, owner); err != nil {
			return err
		}

		for _, username := range input.Invitees {
			user, ok, err := r.guard.IsInvitable(txCtx, username)
			if err != nil {
				return err
			}
			if !ok || user.ID == input.OwnerID {
				continue
			}

			invitedBy := input.OwnerID
			membership := &roomDomain.Membership{
				ID:        uuid.Must(uuid.NewV7()),
				RoomID:    room.ID,
				UserID:    user.ID,
				InvitedBy: &invitedBy,
				JoinedAt:  now,
			}
			if _, err := r.membershipRepo.CreateIfNotExists(txCtx, membership); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.loadDetail(ctx, room.ID)
}

// AddMember adds username to the room when the actor is allowed to invite.
func (r *roomUseCase) AddMember(
	ctx context.Context,
	actorID, roomID uuid.UUID,
	username string,
) (*roomDomain.Membership, bool, error) {
	allowed, err := r.guard.CanInvite(ctx, actorID, roomID)
	if err != nil {
		return nil, false, err
	}
	if !allowed {
		return nil, false, roomDomain.ErrNotRoomMember
	}

	user, ok, err := r.guard.IsInvitable(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, roomDomain.ErrUserNotFound
	}

	invitedBy := actorID
	membership := &roomDomain.Membership{
		ID:        uuid.Must(uuid.NewV7()),
		RoomID:    roomID,
		UserID:    user.ID,
		InvitedBy: &invitedBy,
		JoinedAt:  time.Now().UTC(),
	}

	created, err := r.membershipRepo.CreateIfNotExists(ctx, membership)
	if err != nil {
		return nil, false, err
	}
	return membership, created, nil
}

// Get returns the room detail for a member.
func (r *roomUseCase) Get(ctx context.Context, userID, roomID uuid.UUID) (*roomDomain.RoomDetail, error) {
	if err := r.guard.RequireRead(ctx, userID, roomID); err != nil {
		return nil, err
	}
	return r.loadDetail(ctx, roomID)
}

// ListForUser lists the user's rooms with their members.
func (r *roomUseCase) ListForUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*roomDomain.RoomDetail, error) {
	rooms, err := r.roomRepo.ListByMember(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}

	details := make([]*roomDomain.RoomDetail, 0, len(rooms))
	for _, room := range rooms {
		members, err := r.membershipRepo.ListByRoom(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, &roomDomain.RoomDetail{Room: room, Members: members})
	}
	return details, nil
}

// Delete removes the room. Attachment blobs are removed after the rows are gone; a blob
// that cannot be removed is logged and left behind.
func (r *roomUseCase) Delete(ctx context.Context, actorID, roomID uuid.UUID) error {
	if err := r.guard.RequireRead(ctx, actorID, roomID); err != nil {
		return err
	}

	room, err := r.roomRepo.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.OwnerID != actorID {
		return roomDomain.ErrNotRoomOwner
	}

	blobKeys, err := r.attachmentKeys.ListBlobKeysByRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if err := r.roomRepo.Delete(ctx, roomID); err != nil {
		return err
	}

	for _, key := range blobKeys {
		if err := r.blobs.Delete(ctx, key); err != nil {
			r.logger.Warn("failed to delete attachment blob",
				slog.String("room_id", roomID.String()),
				slog.String("blob_key", key),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

// RewrapKeys moves every room envelope from the previous master key to the current one.
func (r *roomUseCase) RewrapKeys(
	ctx context.Context,
	previous cryptoService.KeyVault,
	batchSize int,
) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	rewrapped := 0
	for offset := 0; ; offset += batchSize {
		rooms, err := r.roomRepo.ListKeyEnvelopes(ctx, offset, batchSize)
		if err != nil {
			return rewrapped, err
		}

		for _, room := range rooms {
			changed, err := r.rewrapRoom(ctx, previous, room)
			if err != nil {
				return rewrapped, apperrors.Wrapf(err, "room %s", room.ID)
			}
			if changed {
				rewrapped++
			}
		}

		if len(rooms) < batchSize {
			return rewrapped, nil
		}
	}
}

func (r *roomUseCase) rewrapRoom(
	ctx context.Context,
	previous cryptoService.KeyVault,
	room *roomDomain.Room,
) (bool, error) {
	roomKey, err := previous.Unwrap(room.KeyEnvelope)
	if err != nil {
		if !apperrors.Is(err, cryptoDomain.ErrKeyIntegrity) {
			return false, err
		}
		current, currentErr := r.keyVault.Unwrap(room.KeyEnvelope)
		if currentErr != nil {
			return false, err
		}
		current.Close()
		return false, nil
	}
	defer roomKey.Close()

	envelope, err := r.keyVault.Wrap(roomKey)
	if err != nil {
		return false, err
	}
	if err := r.roomRepo.UpdateKeyEnvelope(ctx, room.ID, envelope); err != nil {
		return false, err
	}
	return true, nil
}

func (r *roomUseCase) loadDetail(ctx context.Context, roomID uuid.UUID) (*roomDomain.RoomDetail, error) {
	room, err := r.roomRepo.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	members, err := r.membershipRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &roomDomain.RoomDetail{Room: room, Members: members}, nil
}

// NewRoomUseCase creates a new RoomUseCase.
func NewRoomUseCase(
	txManager database.TxManager,
	roomRepo RoomRepository,
	membershipRepo MembershipRepository,
	attachmentKeys AttachmentKeyLister,
	blobs BlobDeleter,
	guard roomService.MembershipGuard,
	keyVault cryptoService.KeyVault,
	logger *slog.Logger,
) RoomUseCase {
	return &roomUseCase{
		txManager:      txManager,
		roomRepo:       roomRepo,
		membershipRepo: membershipRepo,
		attachmentKeys: attachmentKeys,
		blobs:          blobs,
		guard:          guard,
		keyVault:       keyVault,
		logger:         logger,
	}
}
