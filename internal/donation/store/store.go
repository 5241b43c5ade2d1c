// Package store persists donations. Implementations return pkg/sentinel
// errors; services translate them into domain errors.
package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"donation-gateway/internal/donation/models"
)

// UpdateFields is a partial update; nil fields are left untouched.
type UpdateFields struct {
	Status           *models.Status
	PaymentReference *string
	PaymentDetails   json.RawMessage
}

// Store is the donation record contract.
//
// Execute is the atomic validate-then-mutate primitive used for status
// transitions: the implementation holds its lock (mutex or SELECT ... FOR
// UPDATE) across both callbacks, so the validation's view of the donation is
// still true when the mutation lands. A validate error aborts with no write.
type Store interface {
	Create(ctx context.Context, donation *models.Donation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Donation, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Donation, error)
	Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (*models.Donation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Execute(ctx context.Context, id uuid.UUID,
		validate func(*models.Donation) error,
		mutate func(*models.Donation)) (*models.Donation, error)
}
