// Package notify delivers donor-facing and admin emails. Delivery is best
// effort: callers log failures and move on, a lost email never rolls back a
// completed payment.
package notify

import (
	"context"

	"donation-gateway/internal/donation/models"
)

// Notifier sends the donation lifecycle emails.
type Notifier interface {
	// SendReceipt mails the rendered receipt to the donor.
	SendReceipt(ctx context.Context, donation *models.Donation, receiptHTML string) error
	// SendThankYou mails a short acknowledgement to the donor.
	SendThankYou(ctx context.Context, donation *models.Donation) error
	// SendAdminAlert notifies the configured admin of a completed donation.
	SendAdminAlert(ctx context.Context, donation *models.Donation) error
}
