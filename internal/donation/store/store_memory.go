package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"donation-gateway/internal/donation/models"
	"donation-gateway/pkg/sentinel"
)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	donations   map[uuid.UUID]*models.Donation
	byReference map[string]uuid.UUID
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		donations:   make(map[uuid.UUID]*models.Donation),
		byReference: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Create(_ context.Context, donation *models.Donation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if donation.ID == uuid.Nil {
		donation.ID = uuid.New()
	}
	if _, ok := s.donations[donation.ID]; ok {
		return sentinel.ErrConflict
	}
	if donation.PaymentReference != "" {
		if _, ok := s.byReference[donation.PaymentReference]; ok {
			return sentinel.ErrConflict
		}
	}
	now := time.Now().UTC()
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = now
	}
	donation.UpdatedAt = donation.CreatedAt

	s.donations[donation.ID] = clone(donation)
	if donation.PaymentReference != "" {
		s.byReference[donation.PaymentReference] = donation.ID
	}
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	donation, ok := s.donations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(donation), nil
}

func (s *MemoryStore) GetByPaymentReference(_ context.Context, reference string) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byReference[reference]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.donations[id]), nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Donation
	for _, donation := range s.donations {
		if donation.UserID == userID {
			out = append(out, clone(donation))
		}
	}
	// Newest first, matching the postgres ORDER BY.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, fields UpdateFields) (*models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	donation, ok := s.donations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if fields.PaymentReference != nil && *fields.PaymentReference != donation.PaymentReference {
		if _, taken := s.byReference[*fields.PaymentReference]; taken {
			return nil, sentinel.ErrConflict
		}
	}

	if fields.Status != nil {
		donation.Status = *fields.Status
	}
	if fields.PaymentReference != nil {
		delete(s.byReference, donation.PaymentReference)
		donation.PaymentReference = *fields.PaymentReference
		s.byReference[donation.PaymentReference] = id
	}
	if fields.PaymentDetails != nil {
		donation.PaymentDetails = append([]byte(nil), fields.PaymentDetails...)
	}
	donation.UpdatedAt = time.Now().UTC()
	return clone(donation), nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	donation, ok := s.donations[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byReference, donation.PaymentReference)
	delete(s.donations, id)
	return nil
}

// Execute holds the store lock across validate and mutate, so concurrent
// transitions on the same donation serialize and exactly one caller observes
// the pre-transition status.
func (s *MemoryStore) Execute(_ context.Context, id uuid.UUID,
	validate func(*models.Donation) error,
	mutate func(*models.Donation)) (*models.Donation, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	donation, ok := s.donations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(donation); err != nil {
		return nil, err
	}

	oldReference := donation.PaymentReference
	mutate(donation)
	if donation.PaymentReference != oldReference {
		delete(s.byReference, oldReference)
		if donation.PaymentReference != "" {
			s.byReference[donation.PaymentReference] = id
		}
	}
	donation.UpdatedAt = time.Now().UTC()
	return clone(donation), nil
}

func clone(d *models.Donation) *models.Donation {
	out := *d
	if d.FamilyMembers != nil {
		out.FamilyMembers = append([]models.FamilyMember(nil), d.FamilyMembers...)
	}
	if d.PaymentDetails != nil {
		out.PaymentDetails = append([]byte(nil), d.PaymentDetails...)
	}
	return &out
}
