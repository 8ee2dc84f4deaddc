package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	endorsementstore "goodcompany/internal/endorsement/store"
	linkstore "goodcompany/internal/link/store"
	profilemodels "goodcompany/internal/profile/models"
	profilestore "goodcompany/internal/profile/store"
	"goodcompany/internal/score"
	"goodcompany/internal/trust"
	verificationstore "goodcompany/internal/verification/store"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
	"goodcompany/pkg/platform/audit"
)

type recordingAuditor struct {
	events []audit.Event
}

func (r *recordingAuditor) Emit(_ context.Context, event audit.Event) error {
	r.events = append(r.events, event)
	return nil
}

type countingCache struct {
	invalidations int
}

func (c *countingCache) Invalidate(context.Context, id.UserID) error {
	c.invalidations++
	return nil
}

type EndorsementServiceSuite struct {
	suite.Suite
	ctx      context.Context
	stores   trust.Stores
	service  *Service
	auditor  *recordingAuditor
	cache    *countingCache
	endorser id.UserID
	endorsed id.UserID
	now      time.Time
}

func (s *EndorsementServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.stores = trust.Stores{
		Profiles:      profilestore.NewMemory(),
		Endorsements:  endorsementstore.NewMemory(),
		Verifications: verificationstore.NewMemory(),
		Links:         linkstore.NewMemory(),
	}
	s.auditor = &recordingAuditor{}
	s.cache = &countingCache{}
	s.service = NewService(
		trust.NewShardedTx(s.stores, 0),
		s.stores,
		score.NewEngine(score.DefaultPolicy()),
		WithAuditPublisher(s.auditor),
		WithViewCache(s.cache),
	)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.endorser = s.newProfile("Avery", true)
	s.endorsed = s.newProfile("Blake", false)
}

func TestEndorsementServiceSuite(t *testing.T) {
	suite.Run(t, new(EndorsementServiceSuite))
}

func (s *EndorsementServiceSuite) newProfile(name string, verified bool) id.UserID {
	userID := id.NewUserID()
	profile, err := profilemodels.New(userID, name, s.now)
	s.Require().NoError(err)
	profile.IsVerified = verified
	s.Require().NoError(s.stores.Profiles.Save(s.ctx, profile))
	return userID
}

func (s *EndorsementServiceSuite) profile(userID id.UserID) *profilemodels.Profile {
	profile, err := s.stores.Profiles.FindByID(s.ctx, userID)
	s.Require().NoError(err)
	return profile
}

func (s *EndorsementServiceSuite) TestEndorse() {
	s.Run("creates endorsement and recomputes score", func() {
		result, err := s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{
			RelationshipType: "Friend",
			Duration:         "2 years",
			Text:             "great hiking partner",
		})
		s.Require().NoError(err)
		s.Equal("friend", result.RelationshipType)
		s.Equal(24, result.DurationMonths)

		profile := s.profile(s.endorsed)
		s.Equal(1, profile.EndorsementCount)
		// 0.6 * (1 + 0.5*24/120) = 0.66, rounded to one decimal
		s.InDelta(0.7, profile.GoodCompanyScore, 0.001)

		s.Require().Len(s.auditor.events, 1)
		s.Equal(string(audit.EventEndorsementCreated), s.auditor.events[0].Action)
		s.Equal(1, s.cache.invalidations)
	})

	s.Run("repeat endorsement updates in place", func() {
		first, err := s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{
			RelationshipType: "friend",
		})
		s.Require().NoError(err)

		second, err := s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{
			RelationshipType: "family",
		})
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)

		profile := s.profile(s.endorsed)
		s.Equal(1, profile.EndorsementCount)
		s.InDelta(1.0, profile.GoodCompanyScore, 0.001)

		last := s.auditor.events[len(s.auditor.events)-1]
		s.Equal(string(audit.EventEndorsementUpdated), last.Action)
	})

	s.Run("rejects self-endorsement", func() {
		_, err := s.service.Endorse(s.ctx, s.endorser, s.endorser, EndorseInput{
			RelationshipType: "friend",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unverified endorser", func() {
		_, err := s.service.Endorse(s.ctx, s.endorsed, s.endorser, EndorseInput{
			RelationshipType: "friend",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("rejects unknown endorsed profile", func() {
		_, err := s.service.Endorse(s.ctx, s.endorser, id.NewUserID(), EndorseInput{
			RelationshipType: "friend",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects missing relationship type", func() {
		_, err := s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid revision leaves the active edge untouched", func() {
		_, err := s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{
			RelationshipType: "family",
			Duration:         "3 years",
		})
		s.Require().NoError(err)

		_, err = s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{
			RelationshipType: "   ",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		active, err := s.service.ListFor(s.ctx, s.endorsed)
		s.Require().NoError(err)
		s.Require().Len(active, 1)
		s.Equal("family", active[0].RelationshipType)
		s.Equal(36, active[0].DurationMonths)
	})
}

func (s *EndorsementServiceSuite) TestRetract() {
	s.Run("removes contribution from the score", func() {
		_, err := s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{
			RelationshipType: "coworker",
		})
		s.Require().NoError(err)

		s.Require().NoError(s.service.Retract(s.ctx, s.endorser, s.endorsed))

		profile := s.profile(s.endorsed)
		s.Equal(0, profile.EndorsementCount)
		s.Zero(profile.GoodCompanyScore)

		active, err := s.service.ListFor(s.ctx, s.endorsed)
		s.Require().NoError(err)
		s.Empty(active)
	})

	s.Run("errors when nothing to retract", func() {
		err := s.service.Retract(s.ctx, s.endorser, s.endorsed)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("retract then re-endorse creates a fresh row", func() {
		first, err := s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{
			RelationshipType: "friend",
		})
		s.Require().NoError(err)
		s.Require().NoError(s.service.Retract(s.ctx, s.endorser, s.endorsed))

		second, err := s.service.Endorse(s.ctx, s.endorser, s.endorsed, EndorseInput{
			RelationshipType: "friend",
		})
		s.Require().NoError(err)
		s.NotEqual(first.ID, second.ID)

		profile := s.profile(s.endorsed)
		s.Equal(1, profile.EndorsementCount)
	})
}

func (s *EndorsementServiceSuite) TestVerifiedBonusFlowsIntoScore() {
	verified := s.newProfile("Casey", true)
	_, err := s.service.Endorse(s.ctx, s.endorser, verified, EndorseInput{
		RelationshipType: "acquaintance",
	})
	s.Require().NoError(err)

	profile := s.profile(verified)
	// 0.4 base weight + 1.0 verified bonus
	s.InDelta(1.4, profile.GoodCompanyScore, 0.001)
}
