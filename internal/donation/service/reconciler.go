package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"donation-gateway/internal/donation/metrics"
	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/donation/store"
	"donation-gateway/internal/events"
	"donation-gateway/internal/gateway"
	"donation-gateway/internal/platform/redis"
	"donation-gateway/pkg/derrors"
	"donation-gateway/pkg/requestcontext"
	"donation-gateway/pkg/sentinel"
)

// Reconciliation sources. Both paths race toward the same transition; the
// store's transition guard decides the winner.
const (
	SourcePoll     = "poll"
	SourceCallback = "callback"
)

const reconcileLockTTL = 30 * time.Second

// Outcome reports what one reconciliation attempt observed and did.
type Outcome struct {
	Donation *models.Donation
	Status   models.Status
	// SideEffectsAttempted is true only for the attempt that won the
	// completion transition and therefore dispatched receipt and emails.
	SideEffectsAttempted bool
}

// Reconciler resolves a pending donation against the gateway's authoritative
// payment state. It is safe to call concurrently for the same reference from
// the poll and callback paths; side effects run exactly once.
type Reconciler struct {
	store      store.Store
	gateway    gateway.Client
	dispatcher *Dispatcher
	events     events.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	// locker is optional; reconciliation is correct without it, the lock
	// only avoids redundant gateway queries.
	locker    *redis.Client
	pollGrace time.Duration
}

// NewReconciler constructs the reconciliation coordinator. locker may be nil.
func NewReconciler(st store.Store, gw gateway.Client, dispatcher *Dispatcher,
	publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger,
	locker *redis.Client, pollGrace time.Duration) *Reconciler {
	return &Reconciler{
		store:      st,
		gateway:    gw,
		dispatcher: dispatcher,
		events:     publisher,
		metrics:    m,
		logger:     logger,
		locker:     locker,
		pollGrace:  pollGrace,
	}
}

// ReconcileByReference drives one reconciliation attempt for the donation
// holding the given payment reference.
//
// The poll path waits out the grace period first, accommodating the
// gateway's eventual consistency right after redirect. Either path then
// queries the authoritative status and applies the resulting transition
// through the store's guard, which serializes racing attempts.
func (r *Reconciler) ReconcileByReference(ctx context.Context, reference, source string) (*Outcome, error) {
	donation, err := r.store.GetByPaymentReference(ctx, reference)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.metrics.IncrementReconcileAttempt(source, "unknown_reference")
			return nil, derrors.New(derrors.CodeNotFound, "unknown payment reference")
		}
		return nil, fmt.Errorf("find donation by reference: %w", err)
	}

	// A donation that already reached a terminal success needs no gateway
	// round trip and no side effects.
	if donation.Status == models.StatusCompleted {
		r.metrics.IncrementReconcileAttempt(source, "already_completed")
		return &Outcome{Donation: donation, Status: donation.Status}, nil
	}

	if source == SourcePoll && r.pollGrace > 0 {
		select {
		case <-time.After(r.pollGrace):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if r.locker != nil {
		won, release, lockErr := r.locker.TryLock(ctx, "reconcile:"+reference, reconcileLockTTL)
		if lockErr != nil {
			r.logger.WarnContext(ctx, "reconcile lock unavailable",
				"payment_reference", reference, "error", lockErr)
		} else if won {
			defer release()
		}
		// Losing the lock is not a reason to stop: the transition guard
		// still protects exactly-once semantics.
	}

	start := time.Now()
	result, err := r.gateway.QueryStatus(ctx, reference)
	r.metrics.ObserveGatewayRequest("status", time.Since(start))
	if err != nil {
		r.metrics.IncrementReconcileAttempt(source, "gateway_error")
		return nil, err
	}

	if result.Succeeded() {
		return r.complete(ctx, donation, result, source)
	}
	return r.fail(ctx, donation, result, source)
}

func (r *Reconciler) complete(ctx context.Context, donation *models.Donation,
	result *gateway.VerificationResult, source string) (*Outcome, error) {

	now := requestcontext.Now(ctx)
	updated, err := r.store.Execute(ctx, donation.ID,
		func(d *models.Donation) error { return d.CanComplete() },
		func(d *models.Donation) { d.ApplyCompletion(result.Raw, now) })
	if err != nil {
		if derrors.HasCode(err, derrors.CodeConflict) {
			// Another attempt won the transition; report its result without
			// re-running side effects.
			return r.observeSettled(ctx, donation.ID, source)
		}
		return nil, err
	}

	r.metrics.IncrementReconcileAttempt(source, "completed")
	r.metrics.IncrementPaymentCompleted(string(updated.Type))
	r.events.Publish(ctx, events.KindDonationCompleted, updated)
	r.logger.InfoContext(ctx, "payment completed",
		"donation_id", updated.ID,
		"payment_reference", updated.PaymentReference,
		"source", source,
		"gateway_transaction_id", result.GatewayTransactionID,
	)

	r.dispatcher.DispatchCompletion(ctx, updated)
	return &Outcome{Donation: updated, Status: updated.Status, SideEffectsAttempted: true}, nil
}

func (r *Reconciler) fail(ctx context.Context, donation *models.Donation,
	result *gateway.VerificationResult, source string) (*Outcome, error) {

	now := requestcontext.Now(ctx)
	updated, err := r.store.Execute(ctx, donation.ID,
		func(d *models.Donation) error { return d.CanFail() },
		func(d *models.Donation) { d.ApplyFailure(result.Raw, now) })
	if err != nil {
		if derrors.HasCode(err, derrors.CodeConflict) {
			return r.observeSettled(ctx, donation.ID, source)
		}
		return nil, err
	}

	r.metrics.IncrementReconcileAttempt(source, "failed")
	r.metrics.IncrementPaymentFailed(string(updated.Type))
	r.events.Publish(ctx, events.KindDonationFailed, updated)
	r.logger.InfoContext(ctx, "payment failed",
		"donation_id", updated.ID,
		"payment_reference", updated.PaymentReference,
		"source", source,
		"gateway_state", result.State,
		"gateway_response_code", result.ResponseCode,
	)
	return &Outcome{Donation: updated, Status: updated.Status}, nil
}

// observeSettled reloads a donation whose transition was applied by a
// concurrent attempt and reports the settled state.
func (r *Reconciler) observeSettled(ctx context.Context, id uuid.UUID, source string) (*Outcome, error) {
	settled, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload settled donation: %w", err)
	}
	r.metrics.IncrementReconcileAttempt(source, "lost_race")
	return &Outcome{Donation: settled, Status: settled.Status}, nil
}
