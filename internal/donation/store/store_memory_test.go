package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"donation-gateway/internal/donation/models"
	"donation-gateway/pkg/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newDonation(reference string) *models.Donation {
	return &models.Donation{
		ID:     uuid.New(),
		UserID: "user-1",
		Type:   models.TypeGeneral,
		Amount: 500,
		DonorInfo: models.DonorInfo{
			Name:  "Jane Doe",
			Email: "jane.doe@example.com",
		},
		Status:           models.StatusPending,
		PaymentReference: reference,
	}
}

func (s *MemoryStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds donation by ID", func() {
		donation := s.newDonation("MT1A")
		s.Require().NoError(s.store.Create(s.ctx, donation))

		found, err := s.store.GetByID(s.ctx, donation.ID)
		s.Require().NoError(err)
		s.Equal(donation.DonorInfo.Email, found.DonorInfo.Email)
		s.False(found.CreatedAt.IsZero())
	})

	s.Run("finds donation by payment reference", func() {
		donation := s.newDonation("MT2B")
		s.Require().NoError(s.store.Create(s.ctx, donation))

		found, err := s.store.GetByPaymentReference(s.ctx, "MT2B")
		s.Require().NoError(err)
		s.Equal(donation.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.GetByID(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for unknown reference", func() {
		_, err := s.store.GetByPaymentReference(s.ctx, "MTUNKNOWN")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestReferenceUniqueness() {
	s.Run("rejects duplicate payment reference", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newDonation("MTDUP")))

		err := s.store.Create(s.ctx, s.newDonation("MTDUP"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("re-attempt re-indexes the superseding reference", func() {
		donation := s.newDonation("MTOLDREF")
		donation.Status = models.StatusFailed
		s.Require().NoError(s.store.Create(s.ctx, donation))

		_, err := s.store.Execute(s.ctx, donation.ID,
			func(d *models.Donation) error { return d.CanReopen() },
			func(d *models.Donation) { d.ApplyReopen("MTNEWREF", time.Now()) })
		s.Require().NoError(err)

		found, err := s.store.GetByPaymentReference(s.ctx, "MTNEWREF")
		s.Require().NoError(err)
		s.Equal(donation.ID, found.ID)

		_, err = s.store.GetByPaymentReference(s.ctx, "MTOLDREF")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestListByUser() {
	first := s.newDonation("MTL1")
	first.CreatedAt = time.Now().Add(-time.Hour)
	second := s.newDonation("MTL2")
	other := s.newDonation("MTL3")
	other.UserID = "user-2"

	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.Create(s.ctx, other))

	listed, err := s.store.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second.ID, listed[0].ID, "newest first")
	s.Equal(first.ID, listed[1].ID)
}

func (s *MemoryStoreSuite) TestUpdateAndDelete() {
	s.Run("applies partial updates", func() {
		donation := s.newDonation("MTUP")
		s.Require().NoError(s.store.Create(s.ctx, donation))

		failed := models.StatusFailed
		updated, err := s.store.Update(s.ctx, donation.ID, UpdateFields{
			Status:         &failed,
			PaymentDetails: []byte(`{"state":"FAILED"}`),
		})
		s.Require().NoError(err)
		s.Equal(models.StatusFailed, updated.Status)
		s.JSONEq(`{"state":"FAILED"}`, string(updated.PaymentDetails))
		s.Equal("MTUP", updated.PaymentReference, "untouched field survives")
	})

	s.Run("delete removes donation and its reference", func() {
		donation := s.newDonation("MTDEL")
		s.Require().NoError(s.store.Create(s.ctx, donation))
		s.Require().NoError(s.store.Delete(s.ctx, donation.ID))

		_, err := s.store.GetByID(s.ctx, donation.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.GetByPaymentReference(s.ctx, "MTDEL")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete of unknown donation is ErrNotFound", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, uuid.New()), sentinel.ErrNotFound)
	})
}

// TestExecuteSerializesTransitions drives concurrent completion attempts at the
// same pending donation and expects exactly one to pass the validate step.
func (s *MemoryStoreSuite) TestExecuteSerializesTransitions() {
	donation := s.newDonation("MTRACE")
	s.Require().NoError(s.store.Create(s.ctx, donation))

	const goroutines = 20
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, donation.ID,
				func(d *models.Donation) error { return d.CanComplete() },
				func(d *models.Donation) { d.ApplyCompletion([]byte(`{}`), time.Now()) })
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	s.Equal(1, succeeded, "exactly one transition wins")

	found, err := s.store.GetByID(s.ctx, donation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, found.Status)
}

func (s *MemoryStoreSuite) TestExecuteValidationFailureLeavesRecordUntouched() {
	donation := s.newDonation("MTVAL")
	s.Require().NoError(s.store.Create(s.ctx, donation))

	_, err := s.store.Execute(s.ctx, donation.ID,
		func(d *models.Donation) error { return d.CanReopen() },
		func(d *models.Donation) { d.ApplyReopen("MTSHOULDNOT", time.Now()) })
	s.Require().Error(err)

	found, err := s.store.GetByID(s.ctx, donation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("MTVAL", found.PaymentReference)
}
