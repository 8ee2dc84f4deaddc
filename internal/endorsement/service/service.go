// Package service orchestrates endorsement writes. Every mutation runs inside
// the per-profile transaction boundary and ends with a score recomputation,
// so the stored good-company score never drifts from the endorsement set.
package service

import (
	"context"
	"log/slog"
	"time"

	"goodcompany/internal/endorsement/metrics"
	"goodcompany/internal/endorsement/models"
	endorsementstore "goodcompany/internal/endorsement/store"
	profilestore "goodcompany/internal/profile/store"
	"goodcompany/internal/score"
	"goodcompany/internal/trust"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
	"goodcompany/pkg/platform/audit"
	"goodcompany/pkg/requestcontext"
)

// AuditPublisher emits audit events for endorsement writes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ViewCache invalidates cached profile views after a write changes what a
// profile read would return.
type ViewCache interface {
	Invalidate(ctx context.Context, userID id.UserID) error
}

// EndorseInput carries the caller-supplied endorsement fields. Duration is
// free text ("2 years", "6 months"); unparseable values count as unspecified.
type EndorseInput struct {
	RelationshipType string
	Duration         string
	Text             string
}

type Service struct {
	tx      trust.Tx
	stores  trust.Stores
	engine  *score.Engine
	logger  *slog.Logger
	auditor AuditPublisher
	cache   ViewCache
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithViewCache(cache ViewCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(tx trust.Tx, stores trust.Stores, engine *score.Engine, opts ...Option) *Service {
	s := &Service{
		tx:     tx,
		stores: stores,
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endorse creates an endorsement of endorsed by endorser, or updates the
// existing active one: a member holds at most one active endorsement per
// profile, so repeat submissions revise rather than stack.
//
// Only verified members may endorse. The score contribution lands in the same
// transaction as the endorsement row.
func (s *Service) Endorse(ctx context.Context, endorser, endorsed id.UserID, in EndorseInput) (*models.Endorsement, error) {
	if endorser == endorsed {
		return nil, dErrors.New(dErrors.CodeValidation, "cannot endorse yourself")
	}

	// The gate reads the endorser's profile, which lives outside the
	// endorsed profile's lock.
	endorserProfile, err := s.stores.Profiles.FindByID(ctx, endorser)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "endorser profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load endorser profile")
	}
	if !endorserProfile.IsVerified {
		return nil, dErrors.New(dErrors.CodeForbidden, "only verified members can endorse")
	}

	now := requestcontext.Now(ctx)
	durationMonths := models.NormalizeDuration(in.Duration)

	var (
		result  *models.Endorsement
		updated bool
	)
	err = s.tx.RunInTx(ctx, endorsed, func(st trust.Stores) error {
		if _, err := st.Profiles.FindByID(ctx, endorsed); err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "endorsed profile not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "load endorsed profile")
		}

		existing, err := st.Endorsements.FindActivePair(ctx, endorser, endorsed)
		switch {
		case err == nil:
			if err := existing.Revise(in.RelationshipType, durationMonths, in.Text, now); err != nil {
				return err
			}
			result = existing
			updated = true
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			created, err := models.New(endorser, endorsed, in.RelationshipType, durationMonths, in.Text, now)
			if err != nil {
				return err
			}
			result = created
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "find existing endorsement")
		}

		if err := st.Endorsements.Save(ctx, result); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save endorsement")
		}
		return s.recompute(ctx, st, endorsed, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncEndorsed(updated)
	s.invalidate(ctx, endorsed)

	action := audit.EventEndorsementCreated
	if updated {
		action = audit.EventEndorsementUpdated
	}
	s.emit(ctx, audit.Event{
		UserID:  endorsed,
		ActorID: endorser.String(),
		Action:  string(action),
		Subject: result.ID.String(),
	})
	return result, nil
}

// Retract withdraws the caller's active endorsement of the profile. The
// endorsement row stays for history; only active rows feed the score.
func (s *Service) Retract(ctx context.Context, endorser, endorsed id.UserID) error {
	now := requestcontext.Now(ctx)

	var retractedID id.EndorsementID
	err := s.tx.RunInTx(ctx, endorsed, func(st trust.Stores) error {
		existing, err := st.Endorsements.FindActivePair(ctx, endorser, endorsed)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no active endorsement to retract")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "find endorsement")
		}

		retractedAt := now
		existing.RetractedAt = &retractedAt
		existing.UpdatedAt = now
		if err := st.Endorsements.Save(ctx, existing); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save endorsement")
		}
		retractedID = existing.ID
		return s.recompute(ctx, st, endorsed, now)
	})
	if err != nil {
		return err
	}

	s.metrics.IncRetracted()
	s.invalidate(ctx, endorsed)
	s.emit(ctx, audit.Event{
		UserID:  endorsed,
		ActorID: endorser.String(),
		Action:  string(audit.EventEndorsementRetracted),
		Subject: retractedID.String(),
	})
	return nil
}

// ListFor returns the profile's active endorsements, oldest first.
func (s *Service) ListFor(ctx context.Context, endorsed id.UserID) ([]*models.Endorsement, error) {
	endorsements, err := s.stores.Endorsements.ListActiveByEndorsed(ctx, endorsed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list endorsements")
	}
	return endorsements, nil
}

func (s *Service) recompute(ctx context.Context, st trust.Stores, endorsed id.UserID, now time.Time) error {
	start := time.Now()
	if err := trust.Recompute(ctx, s.engine, st, endorsed, now); err != nil {
		return err
	}
	s.metrics.ObserveRecompute(start)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID id.UserID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate profile view cache",
			"user_id", userID, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action, "error", err)
	}
}

// Compile-time checks that the store implementations satisfy the bundle.
var (
	_ trust.EndorsementStore = (*endorsementstore.Memory)(nil)
	_ trust.ProfileStore     = (*profilestore.Memory)(nil)
)
