package domain

import (
	"github.com/tnptm/next-djchat/internal/errors"
)

// Room-specific error definitions.
var (
	// ErrRoomNotFound indicates the room does not exist. Callers that are not members
	// never see it; they get ErrNotRoomMember instead.
	ErrRoomNotFound = errors.Wrap(errors.ErrNotFound, "room not found")

	// ErrNotRoomMember indicates the principal holds no membership in the room.
	ErrNotRoomMember = errors.Wrap(errors.ErrForbidden, "not a member of this room")

	// ErrNotRoomOwner indicates an owner-only operation was attempted by another member.
	ErrNotRoomOwner = errors.Wrap(errors.ErrForbidden, "only the room owner can do this")

	// ErrUserNotFound indicates no user matches the given id or username.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")
)
