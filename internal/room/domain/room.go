// Package domain defines rooms, memberships and the users that hold them.
//
// Membership is the only authorization primitive: a (room, user) membership row grants
// both read and write access to the room's messages.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls whether a room is listed as private or public.
type Visibility string

const (
	// Private rooms are the default.
	Private Visibility = "private"
	// Public rooms are flagged for clients; access is still membership-gated.
	Public Visibility = "public"
)

// ParseVisibility maps an is_private flag to a Visibility.
func ParseVisibility(isPrivate bool) Visibility {
	if isPrivate {
		return Private
	}
	return Public
}

// IsPrivate reports whether v is Private.
func (v Visibility) IsPrivate() bool {
	return v != Public
}

// Room is a chat room together with its wrapped room key.
type Room struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Visibility  Visibility
	OwnerID     uuid.UUID
	// OwnerUsername is filled by reads that join the users table.
	OwnerUsername string
	// KeyEnvelope is the room key wrapped under the master key. The plaintext key is never stored.
	KeyEnvelope []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Membership records that a user belongs to a room.
type Membership struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	UserID    uuid.UUID
	InvitedBy *uuid.UUID
	JoinedAt  time.Time
}

// Member is a membership joined with the member's and inviter's user data.
type Member struct {
	UserID            uuid.UUID
	Username          string
	Email             string
	InvitedByUsername *string
	JoinedAt          time.Time
}

// RoomDetail is a room with its member list.
type RoomDetail struct {
	Room    *Room
	Members []Member
}

// MemberCount returns the number of members.
func (d *RoomDetail) MemberCount() int {
	return len(d.Members)
}

// MemberUsernames returns the members' usernames in list order.
func (d *RoomDetail) MemberUsernames() []string {
	usernames := make([]string, 0, len(d.Members))
	for _, m := range d.Members {
		usernames = append(usernames, m.Username)
	}
	return usernames
}
