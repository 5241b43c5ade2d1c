package handler

import (
	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/donation/service"
)

// donationResponse is the outward projection of a donation.
type donationResponse struct {
	Donation   *models.Donation `json:"donation"`
	PaymentURL string           `json:"payment_url,omitempty"`
}

// reconcileResponse reports a reconciliation outcome to callback callers.
type reconcileResponse struct {
	Status           models.Status `json:"status"`
	PaymentReference string        `json:"payment_reference"`
}

func fromOutcome(outcome *service.Outcome) reconcileResponse {
	return reconcileResponse{
		Status:           outcome.Status,
		PaymentReference: outcome.Donation.PaymentReference,
	}
}
