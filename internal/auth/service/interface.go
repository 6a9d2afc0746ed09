// Package service verifies bearer credentials.
//
// Tokens are issued elsewhere. This package only checks their signature and claims and
// resolves the subject to a known user.
package service

import (
	"context"

	"github.com/google/uuid"

	authDomain "github.com/tnptm/next-djchat/internal/auth/domain"
	roomDomain "github.com/tnptm/next-djchat/internal/room/domain"
)

// UserLookup resolves a token subject to a user.
type UserLookup interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*roomDomain.User, error)
}

// TokenVerifier turns a bearer credential into a Principal.
type TokenVerifier interface {
	// Verify returns authDomain.ErrInvalidCredential for any signature, claim or lookup failure
	// other than infrastructure errors.
	Verify(ctx context.Context, token string) (*authDomain.Principal, error)
}
