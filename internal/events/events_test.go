package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"donation-gateway/internal/donation/models"
)

func TestEnvelope(t *testing.T) {
	donation := &models.Donation{
		ID:               uuid.New(),
		Type:             models.TypeGeneral,
		Amount:           500,
		Status:           models.StatusCompleted,
		PaymentReference: "MT123ABCDEF",
		PaymentDetails:   []byte(`{"state":"COMPLETED"}`),
	}

	env := envelope(KindDonationCompleted, donation)

	assert.Equal(t, KindDonationCompleted, env.Kind)
	assert.Equal(t, donation.ID.String(), env.DonationID)
	assert.Equal(t, "general", env.DonationType)
	assert.Equal(t, "completed", env.Status)
	assert.Equal(t, "MT123ABCDEF", env.PaymentReference)
	assert.WithinDuration(t, time.Now(), env.OccurredAt, time.Minute)
	assert.JSONEq(t, `{"state":"COMPLETED"}`, string(env.Details))
}
