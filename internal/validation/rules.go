// Package validation provides the jellydator/validation rules shared by the room and
// message request DTOs.
package validation

import (
	"regexp"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/tnptm/next-djchat/internal/errors"
)

// usernameRegex accepts letters, digits and @.+-_ up to 150 characters.
var usernameRegex = regexp.MustCompile(`^[\w.@+\-]{1,150}$`)

// WrapValidationError turns a validation failure into ErrInvalidInput so handlers answer 422.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Username accepts the identities used in invitations.
var Username = validation.NewStringRuleWithError(
	usernameRegex.MatchString,
	validation.NewError("validation_username", "must be a valid username"),
)

// SingleLine rejects control characters, newlines included. Room names are shown in
// one-line lists on every client.
var SingleLine = validation.NewStringRuleWithError(
	func(s string) bool {
		return !containsControl(s, false)
	},
	validation.NewError("validation_single_line", "must be a single line without control characters"),
)

// PrintableText rejects control characters other than newlines and tabs.
var PrintableText = validation.NewStringRuleWithError(
	func(s string) bool {
		return !containsControl(s, true)
	},
	validation.NewError("validation_printable_text", "must not contain control characters"),
)

func containsControl(s string, allowLayout bool) bool {
	for _, r := range s {
		if allowLayout && (r == '\n' || r == '\t' || r == '\r') {
			continue
		}
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
