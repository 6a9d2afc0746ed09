// Package dto provides data transfer objects for room HTTP requests and responses.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/tnptm/next-djchat/internal/validation"
)

// CreateRoomRequest contains the parameters for creating a room.
type CreateRoomRequest struct {
	Name             string   `json:"name"`
	Description      *string  `json:"description"`
	InvitedUsernames []string `json:"invited_usernames"`
	// IsPrivate defaults to true when omitted.
	IsPrivate *bool `json:"is_private"`
}

// Validate checks if the create room request is valid.
func (r *CreateRoomRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Length(0, 255), customValidation.SingleLine),
		validation.Field(&r.Description,
			validation.NilOrNotEmpty,
			validation.Length(0, 2000),
			customValidation.PrintableText,
		),
		validation.Field(&r.InvitedUsernames,
			validation.Length(0, 100),
			validation.Each(validation.Required, customValidation.Username),
		),
	)
}

// Private returns the requested privacy flag, defaulting to true.
func (r *CreateRoomRequest) Private() bool {
	return r.IsPrivate == nil || *r.IsPrivate
}

// AddMemberRequest contains the username to invite into a room.
type AddMemberRequest struct {
	Username string `json:"username"`
}

// Validate checks if the add member request is valid.
func (r *AddMemberRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, customValidation.Username),
	)
}
