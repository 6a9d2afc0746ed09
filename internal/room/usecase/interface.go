// Package usecase defines the interfaces and implementations for room management use cases.
// Room creation couples key generation, envelope wrapping and the owner's membership into a
// single transaction; every other operation is gated by membership.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// RoomRepository defines the interface for Room persistence operations.
type RoomRepository interface {
	Create(ctx context.Context, room *roomDomain.Room) error
	Get(ctx context.Context, roomID uuid.UUID) (*roomDomain.Room, error)
	ListByMember(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*roomDomain.Room, error)
	ListKeyEnvelopes(ctx context.Context, offset, limit int) ([]*roomDomain.Room, error)
	UpdateKeyEnvelope(ctx context.Context, roomID uuid.UUID, envelope []byte) error
	Touch(ctx context.Context, roomID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, roomID uuid.UUID) error
}

// MembershipRepository defines the interface for Membership persistence operations.
type MembershipRepository interface {
	CreateIfNotExists(ctx context.Context, membership *roomDomain.Membership) (bool, error)
	Exists(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]roomDomain.Member, error)
	Count(ctx context.Context, roomID uuid.UUID) (int, error)
}

// UserRepository defines the interface for read-only User lookups.
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*roomDomain.User, error)
	GetByUsername(ctx context.Context, username string) (*roomDomain.User, error)
}

// AttachmentKeyLister lists the blob keys of every attachment stored in a room.
type AttachmentKeyLister interface {
	ListBlobKeysByRoom(ctx context.Context, roomID uuid.UUID) ([]string, error)
}

// BlobDeleter removes attachment contents from the blob store.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// CreateRoomInput carries the parameters of RoomUseCase.Create.
type CreateRoomInput struct {
	OwnerID     uuid.UUID
	Name        string
	Description *string
	Visibility  roomDomain.Visibility
	// Invitees are usernames. Unknown names and the owner's own name are skipped.
	Invitees []string
}

// RoomUseCase defines the interface for room management business logic.
type RoomUseCase interface {
	// Create generates and wraps a fresh room key, then stores the room, the owner's
	// membership and the resolvable invitees' memberships atomically.
	Create(ctx context.Context, input CreateRoomInput) (*roomDomain.RoomDetail, error)

	// AddMember invites username into the room on behalf of actorID. It returns the
	// membership and whether it was newly created; an existing membership is a no-op.
	AddMember(
		ctx context.Context,
		actorID, roomID uuid.UUID,
		username string,
	) (*roomDomain.Membership, bool, error)

	// Get returns the room with its members. Non-members get roomDomain.ErrNotRoomMember
	// whether or not the room exists.
	Get(ctx context.Context, userID, roomID uuid.UUID) (*roomDomain.RoomDetail, error)

	// ListForUser lists the rooms the user belongs to, most recently active first.
	ListForUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*roomDomain.RoomDetail, error)

	// Delete removes the room and everything in it. Only the owner may delete.
	Delete(ctx context.Context, actorID, roomID uuid.UUID) error

	// RewrapKeys re-wraps every room envelope that opens under previous so that it opens
	// under the configured master key instead. Envelopes already wrapped under the current
	// master key are left alone. It returns the number of rooms rewritten.
	RewrapKeys(ctx context.Context, previous cryptoService.KeyVault, batchSize int) (int, error)
}
