package notify

import (
	"context"
	"log/slog"

	"donation-gateway/internal/donation/models"
)

// LogNotifier records would-be emails to the log. Used when no SMTP host is
// configured and in tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLog constructs a log-only notifier.
func NewLog(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendReceipt(ctx context.Context, donation *models.Donation, _ string) error {
	n.logger.InfoContext(ctx, "receipt email suppressed, no SMTP configured",
		"donation_id", donation.ID, "to", donation.DonorInfo.Email)
	return nil
}

func (n *LogNotifier) SendThankYou(ctx context.Context, donation *models.Donation) error {
	n.logger.InfoContext(ctx, "thank-you email suppressed, no SMTP configured",
		"donation_id", donation.ID, "to", donation.DonorInfo.Email)
	return nil
}

func (n *LogNotifier) SendAdminAlert(ctx context.Context, donation *models.Donation) error {
	n.logger.InfoContext(ctx, "admin alert suppressed, no SMTP configured",
		"donation_id", donation.ID)
	return nil
}
