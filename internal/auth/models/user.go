// Package models defines the account types used by the auth module.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered donor account. Email is stored lower-cased so logins
// are case-insensitive.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
	// PasswordHash is the bcrypt hash of the password. Never serialized.
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
