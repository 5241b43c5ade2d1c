// Package metrics provides observability for the donation module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks donation creation, payment outcomes and reconciliation
// activity. A nil *Metrics is a no-op, so tests can pass nil.
type Metrics struct {
	DonationsCreated prometheus.Counter

	// Payment outcomes by donation type
	PaymentsCompleted *prometheus.CounterVec
	PaymentsFailed    *prometheus.CounterVec

	// Reconciliation attempts by source ("poll", "callback") and outcome
	ReconcileAttempts *prometheus.CounterVec

	CallbackSignatureFailures prometheus.Counter

	GatewayRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all donation module metrics registered.
func New() *Metrics {
	return &Metrics{
		DonationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_gateway_donations_created_total",
			Help: "Total number of donations created",
		}),
		PaymentsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_gateway_payments_completed_total",
			Help: "Total payments reconciled as completed, by donation type",
		}, []string{"type"}),
		PaymentsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_gateway_payments_failed_total",
			Help: "Total payments reconciled as failed, by donation type",
		}, []string{"type"}),
		ReconcileAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "donation_gateway_reconcile_attempts_total",
			Help: "Total reconciliation attempts by source and outcome",
		}, []string{"source", "outcome"}), // source: "poll", "callback"

		CallbackSignatureFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "donation_gateway_callback_signature_failures_total",
			Help: "Total gateway callbacks rejected for a bad signature",
		}),
		GatewayRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donation_gateway_gateway_request_duration_seconds",
			Help:    "Duration of outbound payment gateway requests by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}), // operation: "initiate", "status"
	}
}

// IncrementDonationsCreated records a successfully created donation.
func (m *Metrics) IncrementDonationsCreated() {
	if m != nil {
		m.DonationsCreated.Inc()
	}
}

// IncrementPaymentCompleted records a payment reconciled as completed.
func (m *Metrics) IncrementPaymentCompleted(donationType string) {
	if m != nil {
		m.PaymentsCompleted.WithLabelValues(donationType).Inc()
	}
}

// IncrementPaymentFailed records a payment reconciled as failed.
func (m *Metrics) IncrementPaymentFailed(donationType string) {
	if m != nil {
		m.PaymentsFailed.WithLabelValues(donationType).Inc()
	}
}

// IncrementReconcileAttempt records one reconciliation attempt.
func (m *Metrics) IncrementReconcileAttempt(source, outcome string) {
	if m != nil {
		m.ReconcileAttempts.WithLabelValues(source, outcome).Inc()
	}
}

// IncrementCallbackSignatureFailure records a rejected callback.
func (m *Metrics) IncrementCallbackSignatureFailure() {
	if m != nil {
		m.CallbackSignatureFailures.Inc()
	}
}

// ObserveGatewayRequest records the duration of an outbound gateway call.
func (m *Metrics) ObserveGatewayRequest(operation string, d time.Duration) {
	if m != nil {
		m.GatewayRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
	}
}
