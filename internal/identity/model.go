package identity

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound indicates no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email twice.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidUser rejects registrations without a name or email.
	ErrInvalidUser = errors.New("name and email are required")
)

// User represents a registered wallet owner.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
