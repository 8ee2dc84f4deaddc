package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"goodcompany/internal/verification/models"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

type VerificationStoreSuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
	now   time.Time
}

func (s *VerificationStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestVerificationStoreSuite(t *testing.T) {
	suite.Run(t, new(VerificationStoreSuite))
}

func (s *VerificationStoreSuite) newRecord(userID id.UserID, submittedAt time.Time) *models.Record {
	record, err := models.NewRecord(userID, models.StatusDocumentPending, submittedAt)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(s.ctx, record))
	return record
}

func (s *VerificationStoreSuite) TestFindActiveByUser() {
	userID := id.NewUserID()

	s.Run("empty store", func() {
		_, err := s.store.FindActiveByUser(s.ctx, userID)
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("returns the non-terminal record", func() {
		record := s.newRecord(userID, s.now)
		found, err := s.store.FindActiveByUser(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(record.ID, found.ID)
	})

	s.Run("terminal records are not active", func() {
		active, err := s.store.FindActiveByUser(s.ctx, userID)
		s.Require().NoError(err)
		active.Status = models.StatusRejected
		s.Require().NoError(s.store.Save(s.ctx, active))

		_, err = s.store.FindActiveByUser(s.ctx, userID)
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *VerificationStoreSuite) TestLatestAndHistory() {
	userID := id.NewUserID()
	first := s.newRecord(userID, s.now)
	first.Status = models.StatusRejected
	s.Require().NoError(s.store.Save(s.ctx, first))
	second := s.newRecord(userID, s.now.Add(time.Hour))

	latest, err := s.store.FindLatestByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)

	history, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(second.ID, history[0].ID)
	s.Equal(first.ID, history[1].ID)
}

func (s *VerificationStoreSuite) TestTransitionStatus() {
	userID := id.NewUserID()
	record := s.newRecord(userID, s.now)
	record.Status = models.StatusReadyForReview
	s.Require().NoError(s.store.Save(s.ctx, record))

	s.Run("applies when the state matches", func() {
		err := s.store.TransitionStatus(s.ctx, record.ID, models.StatusReadyForReview, models.StatusVerifying, s.now)
		s.Require().NoError(err)

		found, err := s.store.FindActiveByUser(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(models.StatusVerifying, found.Status)
	})

	s.Run("conflicts when the state moved on", func() {
		err := s.store.TransitionStatus(s.ctx, record.ID, models.StatusReadyForReview, models.StatusVerifying, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown record", func() {
		err := s.store.TransitionStatus(s.ctx, id.NewVerificationID(), models.StatusReadyForReview, models.StatusVerifying, s.now)
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

// Exactly one of a set of concurrent compare-and-set attempts may win.
func (s *VerificationStoreSuite) TestTransitionStatusConcurrentCAS() {
	record := s.newRecord(id.NewUserID(), s.now)
	record.Status = models.StatusReadyForReview
	s.Require().NoError(s.store.Save(s.ctx, record))

	const attempts = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.TransitionStatus(s.ctx, record.ID, models.StatusReadyForReview, models.StatusVerifying, s.now)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
}
