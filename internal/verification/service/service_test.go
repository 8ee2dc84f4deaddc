package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	endorsementstore "goodcompany/internal/endorsement/store"
	linkstore "goodcompany/internal/link/store"
	profilemodels "goodcompany/internal/profile/models"
	profilestore "goodcompany/internal/profile/store"
	"goodcompany/internal/score"
	"goodcompany/internal/trust"
	"goodcompany/internal/verification/adapters"
	"goodcompany/internal/verification/models"
	"goodcompany/internal/verification/ports"
	verificationstore "goodcompany/internal/verification/store"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n0000000000000000")
	jpegBytes = []byte("\xff\xd8\xff\xe00000000000000000")
)

// stubDecider delegates to a swappable function so each test controls the
// collaborator's behavior.
type stubDecider struct {
	decide func(ctx context.Context, document, selfie models.ArtifactRef) (ports.Decision, error)
}

func (d *stubDecider) Decide(ctx context.Context, document, selfie models.ArtifactRef) (ports.Decision, error) {
	return d.decide(ctx, document, selfie)
}

func approveAll(context.Context, models.ArtifactRef, models.ArtifactRef) (ports.Decision, error) {
	return ports.Decision{Approved: true}, nil
}

type VerificationServiceSuite struct {
	suite.Suite
	ctx     context.Context
	stores  trust.Stores
	decider *stubDecider
	service *Service
	userID  id.UserID
	now     time.Time
}

func (s *VerificationServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.stores = trust.Stores{
		Profiles:      profilestore.NewMemory(),
		Endorsements:  endorsementstore.NewMemory(),
		Verifications: verificationstore.NewMemory(),
		Links:         linkstore.NewMemory(),
	}
	s.decider = &stubDecider{decide: approveAll}
	s.service = NewService(
		trust.NewShardedTx(s.stores, 0),
		s.stores,
		score.NewEngine(score.DefaultPolicy()),
		adapters.NewMemoryArtifactStore(),
		s.decider,
		Config{DecisionTimeout: 200 * time.Millisecond},
	)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.userID = id.NewUserID()
	profile, err := profilemodels.New(s.userID, "Avery", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.stores.Profiles.Save(s.ctx, profile))
}

func TestVerificationServiceSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceSuite))
}

func (s *VerificationServiceSuite) submitBoth() *models.Record {
	_, err := s.service.SubmitDocument(s.ctx, s.userID, pngBytes, "image/png")
	s.Require().NoError(err)
	record, err := s.service.SubmitSelfie(s.ctx, s.userID, jpegBytes, "image/jpeg")
	s.Require().NoError(err)
	return record
}

func (s *VerificationServiceSuite) TestSubmitArtifacts() {
	s.Run("document first opens a document_pending record", func() {
		record, err := s.service.SubmitDocument(s.ctx, s.userID, pngBytes, "image/png")
		s.Require().NoError(err)
		s.Equal(models.StatusDocumentPending, record.Status)
		s.NotEmpty(record.DocumentRef)
		s.Empty(record.SelfieRef)
	})

	s.Run("second artifact moves the record to ready_for_review", func() {
		record, err := s.service.SubmitSelfie(s.ctx, s.userID, jpegBytes, "image/jpeg")
		s.Require().NoError(err)
		s.Equal(models.StatusReadyForReview, record.Status)
		s.True(record.HasBothArtifacts())
	})

	s.Run("resubmission before a decision replaces the reference", func() {
		before, err := s.stores.Verifications.FindActiveByUser(s.ctx, s.userID)
		s.Require().NoError(err)

		record, err := s.service.SubmitDocument(s.ctx, s.userID, jpegBytes, "")
		s.Require().NoError(err)
		s.Equal(before.ID, record.ID)
		s.NotEqual(before.DocumentRef, record.DocumentRef)
		s.Equal(models.StatusReadyForReview, record.Status)
	})
}

func (s *VerificationServiceSuite) TestSelfieFirstOpensSelfiePending() {
	record, err := s.service.SubmitSelfie(s.ctx, s.userID, pngBytes, "")
	s.Require().NoError(err)
	s.Equal(models.StatusSelfiePending, record.Status)
}

func (s *VerificationServiceSuite) TestArtifactValidation() {
	s.Run("rejects empty artifact", func() {
		_, err := s.service.SubmitDocument(s.ctx, s.userID, nil, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects non-image content", func() {
		_, err := s.service.SubmitDocument(s.ctx, s.userID, []byte("definitely not an image"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects declared type that does not match content", func() {
		_, err := s.service.SubmitDocument(s.ctx, s.userID, pngBytes, "image/jpeg")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects oversized artifact", func() {
		small := NewService(
			trust.NewShardedTx(s.stores, 0), s.stores,
			score.NewEngine(score.DefaultPolicy()),
			adapters.NewMemoryArtifactStore(), s.decider,
			Config{MaxArtifactBytes: 8},
		)
		_, err := small.SubmitDocument(s.ctx, s.userID, pngBytes, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *VerificationServiceSuite) TestRequestDecisionApproved() {
	s.submitBoth()

	record, err := s.service.RequestDecision(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, record.Status)
	s.NotNil(record.DecidedAt)

	profile, err := s.stores.Profiles.FindByID(s.ctx, s.userID)
	s.Require().NoError(err)
	s.True(profile.IsVerified)
	// No endorsements, so the score is exactly the verified bonus.
	s.InDelta(1.0, profile.GoodCompanyScore, 0.001)
}

func (s *VerificationServiceSuite) TestRequestDecisionRejected() {
	s.decider.decide = func(context.Context, models.ArtifactRef, models.ArtifactRef) (ports.Decision, error) {
		return ports.Decision{Approved: false, ReasonCode: "face_mismatch"}, nil
	}
	s.submitBoth()

	record, err := s.service.RequestDecision(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, record.Status)
	s.Equal(models.ReasonCode("face_mismatch"), record.ReasonCode)

	profile, err := s.stores.Profiles.FindByID(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(profile.IsVerified)

	s.Run("rejection is terminal, a resubmission opens a fresh record", func() {
		fresh, err := s.service.SubmitDocument(s.ctx, s.userID, pngBytes, "")
		s.Require().NoError(err)
		s.NotEqual(record.ID, fresh.ID)
		s.Equal(models.StatusDocumentPending, fresh.Status)
	})
}

func (s *VerificationServiceSuite) TestRequestDecisionTimeout() {
	s.decider.decide = func(ctx context.Context, _, _ models.ArtifactRef) (ports.Decision, error) {
		<-ctx.Done()
		return ports.Decision{}, ctx.Err()
	}
	s.submitBoth()

	record, err := s.service.RequestDecision(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, record.Status)
	s.Equal(models.ReasonDecisionTimeout, record.ReasonCode)
}

func (s *VerificationServiceSuite) TestRequestDecisionCollaboratorFailure() {
	s.decider.decide = func(context.Context, models.ArtifactRef, models.ArtifactRef) (ports.Decision, error) {
		return ports.Decision{}, errors.New("decider unavailable")
	}
	s.submitBoth()

	record, err := s.service.RequestDecision(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, record.Status)
	s.Equal(models.ReasonDecisionTimeout, record.ReasonCode)
}

func (s *VerificationServiceSuite) TestDecisionSurvivesCallerDisconnect() {
	ctx, cancel := context.WithCancel(s.ctx)
	s.decider.decide = func(context.Context, models.ArtifactRef, models.ArtifactRef) (ports.Decision, error) {
		// The caller goes away while the collaborator is in flight.
		cancel()
		return ports.Decision{Approved: false, ReasonCode: "face_mismatch"}, nil
	}
	s.submitBoth()

	record, err := s.service.RequestDecision(ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, record.Status)

	stored, err := s.stores.Verifications.FindLatestByUser(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, stored.Status)

	// The workflow recovered: a fresh submission opens a new record instead
	// of conflicting with a wedged Verifying one.
	fresh, err := s.service.SubmitDocument(s.ctx, s.userID, pngBytes, "")
	s.Require().NoError(err)
	s.NotEqual(record.ID, fresh.ID)
	s.Equal(models.StatusDocumentPending, fresh.Status)
}

func (s *VerificationServiceSuite) TestRequestDecisionPreconditions() {
	s.Run("errors without a submission", func() {
		_, err := s.service.RequestDecision(s.ctx, s.userID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("conflicts before both artifacts arrive", func() {
		_, err := s.service.SubmitDocument(s.ctx, s.userID, pngBytes, "")
		s.Require().NoError(err)

		_, err = s.service.RequestDecision(s.ctx, s.userID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *VerificationServiceSuite) TestConcurrentDecisionConflicts() {
	entered := make(chan struct{})
	release := make(chan struct{})
	s.decider.decide = func(context.Context, models.ArtifactRef, models.ArtifactRef) (ports.Decision, error) {
		close(entered)
		<-release
		return ports.Decision{Approved: true}, nil
	}
	s.submitBoth()

	done := make(chan error, 1)
	go func() {
		_, err := s.service.RequestDecision(s.ctx, s.userID)
		done <- err
	}()
	<-entered

	// The record is claimed while the first decision is in flight.
	_, err := s.service.RequestDecision(s.ctx, s.userID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.SubmitSelfie(s.ctx, s.userID, pngBytes, "")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	close(release)
	s.Require().NoError(<-done)
}

func (s *VerificationServiceSuite) TestStatus() {
	s.Run("unverified before any submission", func() {
		status, record, err := s.service.Status(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Equal(models.StatusUnverified, status)
		s.Nil(record)
	})

	s.Run("reports the active record", func() {
		s.submitBoth()
		status, record, err := s.service.Status(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Equal(models.StatusReadyForReview, status)
		s.NotNil(record)
	})

	s.Run("falls back to the latest terminal record", func() {
		_, err := s.service.RequestDecision(s.ctx, s.userID)
		s.Require().NoError(err)

		status, record, err := s.service.Status(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Equal(models.StatusVerified, status)
		s.NotNil(record)
	})
}

func (s *VerificationServiceSuite) TestHistoryNewestFirst() {
	s.decider.decide = func(context.Context, models.ArtifactRef, models.ArtifactRef) (ports.Decision, error) {
		return ports.Decision{Approved: false, ReasonCode: "blurry"}, nil
	}
	s.submitBoth()
	_, err := s.service.RequestDecision(s.ctx, s.userID)
	s.Require().NoError(err)

	s.decider.decide = approveAll
	second := s.submitBoth()
	_, err = s.service.RequestDecision(s.ctx, s.userID)
	s.Require().NoError(err)

	records, err := s.service.History(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(second.ID, records[0].ID)
	s.Equal(models.StatusVerified, records[0].Status)
	s.Equal(models.StatusRejected, records[1].Status)
}
