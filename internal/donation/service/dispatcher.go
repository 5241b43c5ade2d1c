package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/notify"
	"donation-gateway/internal/receipt"
)

// Dispatcher fans out the side effects of a completed donation: receipt mail,
// thank-you mail and the admin alert. Every effect is best effort; failures
// are logged and absorbed so a broken mailer never unsettles a completed
// payment.
type Dispatcher struct {
	notifier notify.Notifier
	renderer receipt.Renderer
	logger   *slog.Logger
}

// NewDispatcher constructs the side-effect dispatcher.
func NewDispatcher(notifier notify.Notifier, renderer receipt.Renderer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, renderer: renderer, logger: logger}
}

// DispatchCompletion runs all completion side effects concurrently and waits
// for them to finish. It never returns an error.
func (d *Dispatcher) DispatchCompletion(ctx context.Context, donation *models.Donation) {
	var g errgroup.Group

	g.Go(func() error {
		html, err := d.renderer.Render(donation)
		if err != nil {
			d.logger.ErrorContext(ctx, "receipt rendering failed",
				"donation_id", donation.ID, "error", err)
			if html == "" {
				return nil
			}
			// A rendered receipt that merely failed to archive is still
			// worth sending.
		}
		if err := d.notifier.SendReceipt(ctx, donation, html); err != nil {
			d.logger.ErrorContext(ctx, "receipt email failed",
				"donation_id", donation.ID, "error", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := d.notifier.SendThankYou(ctx, donation); err != nil {
			d.logger.ErrorContext(ctx, "thank-you email failed",
				"donation_id", donation.ID, "error", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := d.notifier.SendAdminAlert(ctx, donation); err != nil {
			d.logger.ErrorContext(ctx, "admin alert failed",
				"donation_id", donation.ID, "error", err)
		}
		return nil
	})

	_ = g.Wait()
}
