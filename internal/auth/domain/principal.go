// Package domain defines the authenticated principal.
package domain

import "github.com/google/uuid"

// Principal is the user a verified bearer token resolves to.
type Principal struct {
	ID       uuid.UUID
	Username string
	Email    string
}
