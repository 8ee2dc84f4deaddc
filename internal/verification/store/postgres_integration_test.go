//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"goodcompany/internal/verification/models"
	verificationstore "goodcompany/internal/verification/store"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
	"goodcompany/pkg/testutil/containers"
)

type VerificationPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *verificationstore.Postgres
}

func TestVerificationPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	s := new(VerificationPostgresSuite)
	s.postgres = containers.NewPostgresContainer(t)
	suite.Run(t, s)
}

func (s *VerificationPostgresSuite) SetupTest() {
	s.store = verificationstore.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *VerificationPostgresSuite) newRecord(userID id.UserID, submittedAt time.Time) *models.Record {
	record, err := models.NewRecord(userID, models.StatusDocumentPending, submittedAt)
	s.Require().NoError(err)
	record.DocumentRef = "artifact-doc"
	s.Require().NoError(s.store.Save(context.Background(), record))
	return record
}

func (s *VerificationPostgresSuite) TestRoundTrip() {
	ctx := context.Background()
	userID := id.NewUserID()
	record := s.newRecord(userID, time.Now().UTC())

	found, err := s.store.FindActiveByUser(ctx, userID)
	s.Require().NoError(err)
	s.Equal(record.ID, found.ID)
	s.Equal(models.StatusDocumentPending, found.Status)
	s.Equal(models.ArtifactRef("artifact-doc"), found.DocumentRef)
	s.Empty(found.SelfieRef)
	s.Nil(found.DecidedAt)
}

func (s *VerificationPostgresSuite) TestSaveUpsertsByID() {
	ctx := context.Background()
	userID := id.NewUserID()
	record := s.newRecord(userID, time.Now().UTC())

	record.SelfieRef = "artifact-selfie"
	record.Status = models.StatusReadyForReview
	s.Require().NoError(s.store.Save(ctx, record))

	found, err := s.store.FindActiveByUser(ctx, userID)
	s.Require().NoError(err)
	s.Equal(record.ID, found.ID)
	s.Equal(models.StatusReadyForReview, found.Status)
	s.Equal(models.ArtifactRef("artifact-selfie"), found.SelfieRef)
}

func (s *VerificationPostgresSuite) TestActiveExcludesTerminal() {
	ctx := context.Background()
	userID := id.NewUserID()
	record := s.newRecord(userID, time.Now().UTC())

	decidedAt := time.Now().UTC()
	record.Status = models.StatusRejected
	record.DecidedAt = &decidedAt
	s.Require().NoError(s.store.Save(ctx, record))

	_, err := s.store.FindActiveByUser(ctx, userID)
	s.Require().ErrorIs(err, verificationstore.ErrNotFound)

	latest, err := s.store.FindLatestByUser(ctx, userID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, latest.Status)
	s.Require().NotNil(latest.DecidedAt)
}

func (s *VerificationPostgresSuite) TestSecondActiveRecordRejected() {
	ctx := context.Background()
	userID := id.NewUserID()
	s.newRecord(userID, time.Now().UTC())

	// The partial unique index allows one non-terminal record per user.
	dup, err := models.NewRecord(userID, models.StatusSelfiePending, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().Error(s.store.Save(ctx, dup))
}

func (s *VerificationPostgresSuite) TestListNewestFirst() {
	ctx := context.Background()
	userID := id.NewUserID()
	base := time.Now().UTC().Truncate(time.Second)

	older := s.newRecord(userID, base.Add(-time.Hour))
	older.Status = models.StatusRejected
	s.Require().NoError(s.store.Save(ctx, older))
	newer := s.newRecord(userID, base)

	records, err := s.store.ListByUser(ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(newer.ID, records[0].ID)
	s.Equal(older.ID, records[1].ID)
}

func (s *VerificationPostgresSuite) TestTransitionStatusCAS() {
	ctx := context.Background()
	record := s.newRecord(id.NewUserID(), time.Now().UTC())

	err := s.store.TransitionStatus(ctx, record.ID, models.StatusDocumentPending, models.StatusVerifying, time.Now().UTC())
	s.Require().NoError(err)

	// The record moved on, so the same transition now conflicts.
	err = s.store.TransitionStatus(ctx, record.ID, models.StatusDocumentPending, models.StatusVerifying, time.Now().UTC())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	err = s.store.TransitionStatus(ctx, id.NewVerificationID(), models.StatusDocumentPending, models.StatusVerifying, time.Now().UTC())
	s.Require().ErrorIs(err, verificationstore.ErrNotFound)
}

func (s *VerificationPostgresSuite) TestConcurrentTransitionSingleWinner() {
	ctx := context.Background()
	record := s.newRecord(id.NewUserID(), time.Now().UTC())

	const goroutines = 16
	var wg sync.WaitGroup
	var wins atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.TransitionStatus(ctx, record.ID, models.StatusDocumentPending, models.StatusVerifying, time.Now().UTC())
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one transition should win")
}
