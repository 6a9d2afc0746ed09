// Package service implements room authorization.
package service

import (
	"context"

	"github.com/google/uuid"

	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// MembershipReader is the subset of membership persistence the guard needs.
type MembershipReader interface {
	Exists(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

// UserFinder resolves invitee identities.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*roomDomain.User, error)
}

// MembershipGuard answers access questions for a (principal, room) pair.
//
// CanRead and CanWrite currently both reduce to membership. They are separate so that
// read-only members can be introduced without touching call sites.
type MembershipGuard interface {
	CanRead(ctx context.Context, userID, roomID uuid.UUID) (bool, error)
	CanWrite(ctx context.Context, userID, roomID uuid.UUID) (bool, error)
	CanInvite(ctx context.Context, userID, roomID uuid.UUID) (bool, error)

	// RequireRead returns roomDomain.ErrNotRoomMember when CanRead is false.
	RequireRead(ctx context.Context, userID, roomID uuid.UUID) error
	// RequireWrite returns roomDomain.ErrNotRoomMember when CanWrite is false.
	RequireWrite(ctx context.Context, userID, roomID uuid.UUID) error

	// IsInvitable resolves username to an existing user. A missing user is reported
	// as (nil, false, nil) so invite batches can skip it.
	IsInvitable(ctx context.Context, username string) (*roomDomain.User, bool, error)
}
