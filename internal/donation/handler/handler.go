// Package handler wires the donation endpoints to the donation service and
// the reconciliation coordinator.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"donation-gateway/internal/donation/metrics"
	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/donation/service"
	"donation-gateway/internal/receipt"
	"donation-gateway/pkg/derrors"
	"donation-gateway/pkg/httputil"
	"donation-gateway/pkg/requestcontext"
)

// maxCallbackBody bounds gateway callback payloads.
const maxCallbackBody = 1 << 20

// Service defines the donation operations the handler exposes.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (*models.Donation, string, error)
	Reattempt(ctx context.Context, id uuid.UUID) (*models.Donation, string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	ListByUser(ctx context.Context) ([]*models.Donation, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Donation, error)
}

// Reconciler resolves a payment reference against the gateway.
type Reconciler interface {
	ReconcileByReference(ctx context.Context, reference, source string) (*service.Outcome, error)
}

// CallbackVerifier authenticates gateway callbacks before they are trusted.
type CallbackVerifier interface {
	VerifyCallback(signature string, body []byte) bool
}

// Handler serves the donation API.
type Handler struct {
	service     Service
	reconciler  Reconciler
	verifier    CallbackVerifier
	renderer    receipt.Renderer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	thankYouURL string
}

// New constructs a donation handler with its dependencies.
func New(svc Service, reconciler Reconciler, verifier CallbackVerifier,
	renderer receipt.Renderer, m *metrics.Metrics, logger *slog.Logger,
	thankYouURL string) *Handler {
	return &Handler{
		service:     svc,
		reconciler:  reconciler,
		verifier:    verifier,
		renderer:    renderer,
		metrics:     m,
		logger:      logger,
		thankYouURL: thankYouURL,
	}
}

// Register mounts donation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/donations", func(r chi.Router) {
		r.Post("/", h.handleCreate(models.TypeGeneral))
		r.Post("/individual", h.handleCreate(models.TypeIndividual))
		r.Post("/family", h.handleCreate(models.TypeFamily))
		r.Get("/", h.HandleList)

		r.Get("/payment-status/{transactionID}", h.HandlePaymentStatus)
		r.Post("/payment-status/{transactionID}", h.HandlePaymentStatus)
		r.Post("/callback", h.HandleCallback)

		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/reattempt", h.HandleReattempt)
		r.Patch("/{id}/status", h.HandleUpdateStatus)
		r.Get("/{id}/receipt", h.HandleReceipt)
	})
}

func (h *Handler) handleCreate(donationType models.DonationType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createDonationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid JSON body"))
			return
		}

		donation, paymentURL, err := h.service.Create(ctx, req.toServiceRequest(donationType))
		if err != nil {
			h.logger.ErrorContext(ctx, "donation creation failed",
				"request_id", requestcontext.RequestID(ctx),
				"type", donationType,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, donationResponse{
			Donation:   donation,
			PaymentURL: paymentURL,
		})
	}
}

// HandleList handles GET /api/donations for the authenticated user.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	donations, err := h.service.ListByUser(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if donations == nil {
		donations = []*models.Donation{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"donations": donations})
}

// HandleGet handles GET /api/donations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	donation, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donationResponse{Donation: donation})
}

// HandleReattempt handles POST /api/donations/{id}/reattempt, re-opening a
// failed donation with a fresh payment attempt.
func (h *Handler) HandleReattempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	donation, paymentURL, err := h.service.Reattempt(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "donation re-attempt failed",
			"request_id", requestcontext.RequestID(ctx),
			"donation_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donationResponse{
		Donation:   donation,
		PaymentURL: paymentURL,
	})
}

// HandleUpdateStatus handles PATCH /api/donations/{id}/status.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	donation, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donationResponse{Donation: donation})
}

// HandleReceipt handles GET /api/donations/{id}/receipt, serving the rendered
// receipt for a completed donation.
func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	donation, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if donation.Status != models.StatusCompleted {
		httputil.WriteError(w, derrors.New(derrors.CodeConflict,
			"receipts are available for completed donations only"))
		return
	}

	html, err := h.renderer.Render(donation)
	if err != nil && html == "" {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// HandlePaymentStatus handles the gateway's browser redirect. It reconciles
// the referenced payment and forwards the donor to the thank-you page with
// the outcome in the query string.
func (h *Handler) HandlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := chi.URLParam(r, "transactionID")
	if reference == "" {
		h.redirect(w, r, "error", "missing transaction id")
		return
	}

	outcome, err := h.reconciler.ReconcileByReference(ctx, reference, service.SourcePoll)
	if err != nil {
		h.logger.ErrorContext(ctx, "poll reconciliation failed",
			"request_id", requestcontext.RequestID(ctx),
			"payment_reference", reference,
			"error", err,
		)
		h.redirect(w, r, "error", derrors.MessageOf(err))
		return
	}

	switch outcome.Status {
	case models.StatusCompleted:
		h.redirect(w, r, "success", "")
	case models.StatusFailed:
		h.redirect(w, r, "failure", "")
	default:
		h.redirect(w, r, "pending", "")
	}
}

// HandleCallback handles the gateway's server-to-server push. The signature
// is verified before any byte of the body is trusted; a mismatch is rejected
// without touching donation state.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "unreadable body"))
		return
	}

	if !h.verifier.VerifyCallback(r.Header.Get("X-VERIFY"), body) {
		h.metrics.IncrementCallbackSignatureFailure()
		h.logger.WarnContext(ctx, "callback signature rejected",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, derrors.New(derrors.CodeSignatureMismatch, "signature verification failed"))
		return
	}

	var cb callbackBody
	if err := json.Unmarshal(body, &cb); err != nil || cb.MerchantTransactionID == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "missing merchant transaction id"))
		return
	}

	outcome, err := h.reconciler.ReconcileByReference(ctx, cb.MerchantTransactionID, service.SourceCallback)
	if err != nil {
		h.logger.ErrorContext(ctx, "callback reconciliation failed",
			"request_id", requestcontext.RequestID(ctx),
			"payment_reference", cb.MerchantTransactionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromOutcome(outcome))
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, status, message string) {
	query := url.Values{"status": {status}}
	if message != "" {
		query.Set("message", message)
	}
	http.Redirect(w, r, h.thankYouURL+"?"+query.Encode(), http.StatusSeeOther)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, derrors.New(derrors.CodeBadRequest, "invalid donation id")
	}
	return id, nil
}
