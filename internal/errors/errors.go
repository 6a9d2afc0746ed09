// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. Use cases return these kinds (usually wrapped
// with context) and handlers map them to transport status codes.
package errors

import (
	"errors"
	"fmt"
)

// Standard error kinds shared by every domain module.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is malformed or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the caller presented no credential or an invalid one.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated principal lacks permission.
	ErrForbidden = errors.New("forbidden")

	// ErrConfiguration indicates the process was started with missing or malformed settings.
	// It is fatal at startup and never surfaced to request callers.
	ErrConfiguration = errors.New("configuration error")

	// ErrIntegrity indicates stored encrypted data failed authentication.
	// Retrying cannot fix it; callers only ever see an opaque server error.
	ErrIntegrity = errors.New("integrity check failed")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is like Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// kinds is ordered by precedence: a membership denial wrapped around a missing row must
// still read as forbidden.
var kinds = []error{
	ErrForbidden,
	ErrUnauthorized,
	ErrNotFound,
	ErrConflict,
	ErrInvalidInput,
	ErrIntegrity,
	ErrConfiguration,
}

// Kind returns the standard kind err wraps, or nil when it wraps none.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
