// Package store persists user accounts. Implementations return pkg/sentinel
// errors; the service translates them into domain errors.
package store

import (
	"context"

	"github.com/google/uuid"

	"donation-gateway/internal/auth/models"
)

// Store is the user account contract. Create fails with sentinel.ErrConflict
// when the email is already registered.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
