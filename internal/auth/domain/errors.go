package domain

import (
	"github.com/tnptm/next-djchat/internal/errors"
)

// Authentication errors.
var (
	// ErrMissingCredential indicates the request carried no bearer token.
	ErrMissingCredential = errors.Wrap(errors.ErrUnauthorized, "missing credential")

	// ErrInvalidCredential indicates the bearer token failed verification or names an
	// unknown user. The cause is logged, never returned to the caller.
	ErrInvalidCredential = errors.Wrap(errors.ErrUnauthorized, "invalid credential")
)
