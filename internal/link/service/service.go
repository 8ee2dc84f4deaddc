// Package service runs the crowdsourced social link registry: submission
// with platform host validation, distinct-actor corroborate/report votes, and
// the threshold flips that gate a link's visibility.
package service

import (
	"context"
	"log/slog"
	"time"

	"goodcompany/internal/link/metrics"
	"goodcompany/internal/link/models"
	linkstore "goodcompany/internal/link/store"
	"goodcompany/internal/trust"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
	"goodcompany/pkg/platform/audit"
	"goodcompany/pkg/requestcontext"
)

// AuditPublisher emits audit events for link lifecycle changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ViewCache invalidates cached profile views when a link's visibility
// changes.
type ViewCache interface {
	Invalidate(ctx context.Context, userID id.UserID) error
}

// Config carries the vote thresholds. Both flips are monotonic: crossing the
// verify threshold never un-verifies, and a verified link can still be hidden
// later.
type Config struct {
	VerifyThreshold int
	ReportThreshold int
}

func DefaultConfig() Config {
	return Config{
		VerifyThreshold: 2,
		ReportThreshold: 3,
	}
}

type Service struct {
	store    trust.LinkStore
	profiles trust.ProfileStore
	cfg      Config

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

func NewService(store trust.LinkStore, profiles trust.ProfileStore, cfg Config, opts ...Option) *Service {
	if cfg.VerifyThreshold <= 0 {
		cfg.VerifyThreshold = DefaultConfig().VerifyThreshold
	}
	if cfg.ReportThreshold <= 0 {
		cfg.ReportThreshold = DefaultConfig().ReportThreshold
	}
	s := &Service{
		store:    store,
		profiles: profiles,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a pending link on the profile. The submitter may be anyone,
// not just the profile owner; correctness is attested later by votes.
func (s *Service) Submit(ctx context.Context, profileUser, addedBy id.UserID, platform, url string) (*models.Link, error) {
	if _, err := s.profiles.FindByID(ctx, profileUser); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}

	link, err := models.New(profileUser, addedBy, platform, url, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, link); err != nil {
		return nil, err
	}

	s.metrics.IncSubmitted(string(link.Platform))
	s.emit(ctx, audit.Event{
		UserID:  profileUser,
		ActorID: addedBy.String(),
		Action:  string(audit.EventLinkSubmitted),
		Subject: link.ID.String(),
	})
	return link, nil
}

// Corroborate counts one verification vote from the actor. Repeat votes from
// the same actor are no-ops. Crossing the verify threshold flips the
// verified flag.
func (s *Service) Corroborate(ctx context.Context, linkID id.LinkID, actor id.UserID) (*models.Link, error) {
	return s.vote(ctx, linkID, actor, models.VoteCorroborate)
}

// Report counts one report vote from the actor with the same dedup rule.
// Crossing the report threshold hides the link from profile rendering.
func (s *Service) Report(ctx context.Context, linkID id.LinkID, actor id.UserID) (*models.Link, error) {
	return s.vote(ctx, linkID, actor, models.VoteReport)
}

func (s *Service) vote(ctx context.Context, linkID id.LinkID, actor id.UserID, kind models.VoteKind) (*models.Link, error) {
	now := requestcontext.Now(ctx)

	link, counted, err := s.store.AddVote(ctx, linkID, actor, kind, now)
	if err != nil {
		return nil, err
	}
	s.metrics.IncVote(string(kind), counted)
	if !counted {
		return link, nil
	}

	action := audit.EventLinkCorroborated
	if kind == models.VoteReport {
		action = audit.EventLinkReported
	}
	s.emit(ctx, audit.Event{
		UserID:  link.ProfileUserID,
		ActorID: actor.String(),
		Action:  string(action),
		Subject: link.ID.String(),
	})

	return s.applyThresholds(ctx, link, actor, now)
}

func (s *Service) applyThresholds(ctx context.Context, link *models.Link, actor id.UserID, now time.Time) (*models.Link, error) {
	wantVerified := link.VerifyCount >= s.cfg.VerifyThreshold
	wantHidden := link.ReportCount >= s.cfg.ReportThreshold
	if (!wantVerified || link.Verified) && (!wantHidden || link.Hidden) {
		return link, nil
	}

	wasVerified, wasHidden := link.Verified, link.Hidden
	updated, err := s.store.SetFlags(ctx, link.ID, wantVerified, wantHidden, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "apply link thresholds")
	}

	if updated.Verified && !wasVerified {
		s.metrics.IncThreshold("verified")
		s.emit(ctx, audit.Event{
			UserID:  updated.ProfileUserID,
			ActorID: actor.String(),
			Action:  string(audit.EventLinkVerified),
			Subject: updated.ID.String(),
		})
	}
	if updated.Hidden && !wasHidden {
		s.metrics.IncThreshold("hidden")
		s.emit(ctx, audit.Event{
			UserID:  updated.ProfileUserID,
			ActorID: actor.String(),
			Action:  string(audit.EventLinkHidden),
			Subject: updated.ID.String(),
		})
	}
	// Visibility changed either way the flags moved.
	s.invalidate(ctx, updated.ProfileUserID)
	return updated, nil
}

// ListVisible returns the profile's non-hidden links in platform registration
// order, each carrying its verified flag.
func (s *Service) ListVisible(ctx context.Context, profileUser id.UserID) ([]*models.Link, error) {
	links, err := s.store.ListVisibleByProfile(ctx, profileUser)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list visible links")
	}
	return links, nil
}

// ListHidden returns links suppressed by the report threshold. Moderator
// surface; the rows survive hiding precisely for this trail.
func (s *Service) ListHidden(ctx context.Context, profileUser id.UserID) ([]*models.Link, error) {
	links, err := s.store.ListHiddenByProfile(ctx, profileUser)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list hidden links")
	}
	return links, nil
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
	// Crowdsourcing signals carry the submitting client for moderator triage.
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action, "error", err)
	}
}

var _ trust.LinkStore = (*linkstore.Memory)(nil)
