// Package service implements donation creation, payment re-attempts and
// reconciliation of payment outcomes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	"donation-gateway/internal/donation/metrics"
	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/donation/store"
	"donation-gateway/internal/events"
	"donation-gateway/internal/gateway"
	"donation-gateway/internal/platform/config"
	"donation-gateway/pkg/derrors"
	"donation-gateway/pkg/requestcontext"
	"donation-gateway/pkg/sentinel"
)

// CreateRequest carries a validated donation submission.
type CreateRequest struct {
	Type          models.DonationType
	Amount        float64
	Donor         models.DonorInfo
	FamilyMembers []models.FamilyMember
}

// Service orchestrates the donation lifecycle against the store and the
// payment gateway.
type Service struct {
	store   store.Store
	gateway gateway.Client
	cfg     config.Gateway
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New constructs the donation service.
func New(st store.Store, gw gateway.Client, cfg config.Gateway,
	publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		gateway: gw,
		cfg:     cfg,
		events:  publisher,
		metrics: m,
		logger:  logger,
	}
}

// Create validates the submission, persists a pending donation and initiates
// the payment. The donation only survives if initiation succeeds; a gateway
// refusal removes the half-created record so the donor can simply retry.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Donation, string, error) {
	if err := s.validate(req); err != nil {
		return nil, "", err
	}

	donation := &models.Donation{
		ID:            uuid.New(),
		UserID:        requestcontext.UserID(ctx),
		Type:          req.Type,
		Amount:        req.Amount,
		DonorInfo:     req.Donor,
		FamilyMembers: req.FamilyMembers,
		Status:        models.StatusPending,
	}
	donation.DonorInfo.Email = strings.ToLower(strings.TrimSpace(donation.DonorInfo.Email))

	if err := s.store.Create(ctx, donation); err != nil {
		return nil, "", fmt.Errorf("create donation: %w", err)
	}

	result, err := s.initiate(ctx, donation)
	if err != nil {
		if deleteErr := s.store.Delete(ctx, donation.ID); deleteErr != nil {
			s.logger.ErrorContext(ctx, "orphaned donation after failed initiation",
				"donation_id", donation.ID, "error", deleteErr)
		}
		return nil, "", err
	}

	reference := result.MerchantTransactionID
	donation, err = s.store.Update(ctx, donation.ID, store.UpdateFields{PaymentReference: &reference})
	if err != nil {
		return nil, "", fmt.Errorf("attach payment reference: %w", err)
	}

	s.metrics.IncrementDonationsCreated()
	s.events.Publish(ctx, events.KindDonationCreated, donation)
	s.logger.InfoContext(ctx, "donation created",
		"donation_id", donation.ID,
		"type", donation.Type,
		"amount", donation.Amount,
		"payment_reference", donation.PaymentReference,
	)
	return donation, result.PaymentURL, nil
}

// Reattempt re-opens a failed donation with a fresh payment attempt. The new
// merchant transaction id supersedes the old one; completed donations are
// rejected by the reopen guard.
func (s *Service) Reattempt(ctx context.Context, id uuid.UUID) (*models.Donation, string, error) {
	donation, err := s.getOwned(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := donation.CanReopen(); err != nil {
		return nil, "", err
	}

	result, err := s.initiate(ctx, donation)
	if err != nil {
		return nil, "", err
	}

	now := requestcontext.Now(ctx)
	donation, err = s.store.Execute(ctx, id,
		func(d *models.Donation) error { return d.CanReopen() },
		func(d *models.Donation) { d.ApplyReopen(result.MerchantTransactionID, now) })
	if err != nil {
		return nil, "", err
	}

	s.events.Publish(ctx, events.KindDonationCreated, donation)
	s.logger.InfoContext(ctx, "donation re-attempted",
		"donation_id", donation.ID,
		"payment_reference", donation.PaymentReference,
	)
	return donation, result.PaymentURL, nil
}

// Get returns a donation by id, restricted to its owner when it has one.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	return s.getOwned(ctx, id)
}

// ListByUser returns the authenticated user's donations, newest first.
func (s *Service) ListByUser(ctx context.Context) ([]*models.Donation, error) {
	userID := requestcontext.UserID(ctx)
	if userID == "" {
		return nil, derrors.New(derrors.CodeUnauthenticated, "authentication required")
	}
	donations, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

// SetStatus force-applies a status transition. Callers must be authenticated
// and own the donation; the transition honors the same lifecycle guards as
// reconciliation, so it cannot resurrect a completed donation. In particular
// a manual pending -> completed carries no verification payload and is never
// reachable anonymously.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Donation, error) {
	if requestcontext.UserID(ctx) == "" {
		return nil, derrors.New(derrors.CodeUnauthenticated, "authentication required")
	}
	if _, err := s.getOwned(ctx, id); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	donation, err := s.store.Execute(ctx, id,
		func(d *models.Donation) error {
			switch status {
			case models.StatusCompleted:
				return d.CanComplete()
			case models.StatusFailed:
				return d.CanFail()
			case models.StatusPending:
				return d.CanReopen()
			default:
				return derrors.Newf(derrors.CodeBadRequest, "unknown status %q", status)
			}
		},
		func(d *models.Donation) {
			switch status {
			case models.StatusCompleted:
				d.ApplyCompletion(nil, now)
			case models.StatusFailed:
				d.ApplyFailure(nil, now)
			case models.StatusPending:
				d.ApplyReopen(d.PaymentReference, now)
			}
		})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.New(derrors.CodeNotFound, "donation not found")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "donation status overridden",
		"donation_id", id, "status", status)
	return donation, nil
}

func (s *Service) initiate(ctx context.Context, donation *models.Donation) (*gateway.InitiationResult, error) {
	start := time.Now()
	result, err := s.gateway.InitiatePayment(ctx, gateway.PaymentRequest{
		Amount:         donation.Amount,
		PayerPhone:     donation.DonorInfo.Phone,
		MerchantUserID: donation.UserID,
	})
	s.metrics.ObserveGatewayRequest("initiate", time.Since(start))
	return result, err
}

func (s *Service) getOwned(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	donation, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.New(derrors.CodeNotFound, "donation not found")
		}
		return nil, fmt.Errorf("get donation: %w", err)
	}
	if donation.UserID != "" && donation.UserID != requestcontext.UserID(ctx) {
		// Existence of another user's donation is not disclosed.
		return nil, derrors.New(derrors.CodeNotFound, "donation not found")
	}
	return donation, nil
}

func (s *Service) validate(req CreateRequest) error {
	if !req.Type.Valid() {
		return derrors.Newf(derrors.CodeBadRequest, "unknown donation type %q", req.Type)
	}
	if req.Amount < s.cfg.MinAmount {
		return derrors.Newf(derrors.CodeBadRequest, "minimum donation amount is %.0f", s.cfg.MinAmount)
	}
	if strings.TrimSpace(req.Donor.Name) == "" {
		return derrors.New(derrors.CodeBadRequest, "donor name is required")
	}
	if !govalidator.IsEmail(req.Donor.Email) {
		return derrors.New(derrors.CodeBadRequest, "a valid donor email is required")
	}
	if req.Donor.Pincode != "" && !govalidator.IsNumeric(req.Donor.Pincode) {
		return derrors.New(derrors.CodeBadRequest, "pincode must be numeric")
	}

	if req.Type == models.TypeFamily {
		if len(req.FamilyMembers) == 0 {
			return derrors.New(derrors.CodeBadRequest, "family donations need at least one family member")
		}
		for i, member := range req.FamilyMembers {
			if strings.TrimSpace(member.Name) == "" {
				return derrors.Newf(derrors.CodeBadRequest, "family member %d is missing a name", i+1)
			}
		}
	} else if len(req.FamilyMembers) > 0 {
		return derrors.Newf(derrors.CodeBadRequest, "family members are only accepted on family donations")
	}
	return nil
}
