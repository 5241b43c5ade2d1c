// Package events publishes donation lifecycle events to Kafka. Publishing is
// best effort and fully asynchronous; a broker outage never blocks or fails a
// payment flow.
package events

import (
	"context"
	"encoding/json"
	"time"

	"donation-gateway/internal/donation/models"
)

// Event kinds carried on the lifecycle topic.
const (
	KindDonationCreated   = "donation.created"
	KindDonationCompleted = "donation.completed"
	KindDonationFailed    = "donation.failed"
)

// Envelope is the wire shape of a lifecycle event.
type Envelope struct {
	Kind             string          `json:"kind"`
	DonationID       string          `json:"donation_id"`
	DonationType     string          `json:"donation_type"`
	Amount           float64         `json:"amount"`
	Status           string          `json:"status"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	Details          json.RawMessage `json:"details,omitempty"`
}

// Publisher emits donation lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, kind string, donation *models.Donation)
	Close()
}

func envelope(kind string, donation *models.Donation) Envelope {
	return Envelope{
		Kind:             kind,
		DonationID:       donation.ID.String(),
		DonationType:     string(donation.Type),
		Amount:           donation.Amount,
		Status:           string(donation.Status),
		PaymentReference: donation.PaymentReference,
		OccurredAt:       time.Now().UTC(),
		Details:          donation.PaymentDetails,
	}
}

// NoopPublisher drops events. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, *models.Donation) {}
func (NoopPublisher) Close()                                            {}
