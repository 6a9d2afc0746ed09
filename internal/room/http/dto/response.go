package dto

import (
	"time"

	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// MemberResponse represents one membership in API responses.
type MemberResponse struct {
	UserID            string    `json:"user_id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	InvitedByUsername *string   `json:"invited_by_username"`
	JoinedAt          time.Time `json:"joined_at"`
}

// RoomResponse represents a room in API responses. The key envelope is never included.
type RoomResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     *string          `json:"description"`
	IsPrivate       bool             `json:"is_private"`
	CreatedBy       string           `json:"created_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	MemberCount     int              `json:"member_count"`
	MemberUsernames []string         `json:"member_usernames"`
	Members         []MemberResponse `json:"members"`
}

// ListRoomsResponse wraps a page of rooms.
type ListRoomsResponse struct {
	Data []RoomResponse `json:"data"`
}

// AddMemberResponse reports the outcome of an invitation.
type AddMemberResponse struct {
	RoomID  string `json:"room_id"`
	UserID  string `json:"user_id"`
	Created bool   `json:"created"`
}

// MapRoomDetailToResponse converts a room detail to its API representation.
func MapRoomDetailToResponse(detail *roomDomain.RoomDetail) RoomResponse {
	room := detail.Room
	members := make([]MemberResponse, 0, len(detail.Members))
	for _, m := range detail.Members {
		members = append(members, MemberResponse{
			UserID:            m.UserID.String(),
			Username:          m.Username,
			Email:             m.Email,
			InvitedByUsername: m.InvitedByUsername,
			JoinedAt:          m.JoinedAt,
		})
	}

	return RoomResponse{
		ID:              room.ID.String(),
		Name:            room.Name,
		Description:     room.Description,
		IsPrivate:       room.Visibility.IsPrivate(),
		CreatedBy:       room.OwnerUsername,
		CreatedAt:       room.CreatedAt,
		UpdatedAt:       room.UpdatedAt,
		MemberCount:     detail.MemberCount(),
		MemberUsernames: detail.MemberUsernames(),
		Members:         members,
	}
}

// MapRoomDetailsToListResponse converts a page of room details.
func MapRoomDetailsToListResponse(details []*roomDomain.RoomDetail) ListRoomsResponse {
	data := make([]RoomResponse, 0, len(details))
	for _, d := range details {
		data = append(data, MapRoomDetailToResponse(d))
	}
	return ListRoomsResponse{Data: data}
}

// MapMembershipToResponse converts an invitation outcome.
func MapMembershipToResponse(membership *roomDomain.Membership, created bool) AddMemberResponse {
	return AddMemberResponse{
		RoomID:  membership.RoomID.String(),
		UserID:  membership.UserID.String(),
		Created: created,
	}
}
