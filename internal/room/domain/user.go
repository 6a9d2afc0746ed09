package domain

import "github.com/google/uuid"

// User is a registered account. Users are created by an external registration flow and
// are read-only here.
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
}
