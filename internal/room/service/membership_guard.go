package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// MembershipGuardService implements MembershipGuard on top of membership rows.
type MembershipGuardService struct {
	memberships MembershipReader
	users       UserFinder
}

// NewMembershipGuard creates a MembershipGuardService.
func NewMembershipGuard(memberships MembershipReader, users UserFinder) *MembershipGuardService {
	return &MembershipGuardService{
		memberships: memberships,
		users:       users,
	}
}

// CanRead reports whether the user may read the room's messages.
func (g *MembershipGuardService) CanRead(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	return g.memberships.Exists(ctx, roomID, userID)
}

// CanWrite reports whether the user may post to the room.
func (g *MembershipGuardService) CanWrite(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	return g.memberships.Exists(ctx, roomID, userID)
}

// CanInvite reports whether the user may add members to the room.
func (g *MembershipGuardService) CanInvite(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	return g.CanWrite(ctx, userID, roomID)
}

// RequireRead returns nil when CanRead holds.
func (g *MembershipGuardService) RequireRead(ctx context.Context, userID, roomID uuid.UUID) error {
	return require(g.CanRead(ctx, userID, roomID))
}

// RequireWrite returns nil when CanWrite holds.
func (g *MembershipGuardService) RequireWrite(ctx context.Context, userID, roomID uuid.UUID) error {
	return require(g.CanWrite(ctx, userID, roomID))
}

// IsInvitable resolves username. Blank names are never invitable.
func (g *MembershipGuardService) IsInvitable(
	ctx context.Context,
	username string,
) (*roomDomain.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, nil
	}

	user, err := g.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, roomDomain.ErrUserNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}

func require(allowed bool, err error) error {
	if err != nil {
		return err
	}
	if !allowed {
		return roomDomain.ErrNotRoomMember
	}
	return nil
}
