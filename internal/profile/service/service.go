// Package service owns the profile read model and first-sign-in provisioning.
// The composed view fans out its store reads concurrently and caches the
// result; every trust-relevant write elsewhere invalidates it.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	endorsementmodels "goodcompany/internal/endorsement/models"
	linkmodels "goodcompany/internal/link/models"
	"goodcompany/internal/profile/cache"
	"goodcompany/internal/profile/models"
	"goodcompany/internal/trust"
	verificationmodels "goodcompany/internal/verification/models"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
	"goodcompany/pkg/platform/audit"
	"goodcompany/pkg/requestcontext"
)

var tracer = otel.Tracer("goodcompany/internal/profile")

// AuditPublisher emits audit events for profile lifecycle changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	tx     trust.Tx
	stores trust.Stores

	logger  *slog.Logger
	auditor AuditPublisher
	cache   *cache.ViewCache
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

// WithViewCache enables the redis view cache. Without it every read composes
// from the stores.
func WithViewCache(viewCache *cache.ViewCache) Option {
	return func(s *Service) { s.cache = viewCache }
}

func NewService(tx trust.Tx, stores trust.Stores, opts ...Option) *Service {
	s := &Service{
		tx:     tx,
		stores: stores,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureProfile provisions a profile on first sign-in. Idempotent: an
// existing profile is returned as is, with the name refreshed when the
// identity provider supplies a new one.
func (s *Service) EnsureProfile(ctx context.Context, userID id.UserID, name string) (*models.Profile, error) {
	now := requestcontext.Now(ctx)

	var (
		result  *models.Profile
		created bool
	)
	err := s.tx.RunInTx(ctx, userID, func(st trust.Stores) error {
		existing, err := st.Profiles.FindByID(ctx, userID)
		switch {
		case err == nil:
			if name != "" && name != existing.Name {
				existing.Name = name
				existing.UpdatedAt = now
				if err := st.Profiles.Save(ctx, existing); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "save profile")
				}
			}
			result = existing
			return nil
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			profile, err := models.New(userID, name, now)
			if err != nil {
				return err
			}
			if err := st.Profiles.Save(ctx, profile); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "save profile")
			}
			result = profile
			created = true
			return nil
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "find profile")
		}
	})
	if err != nil {
		return nil, err
	}

	if created && s.auditor != nil {
		event := audit.Event{
			UserID:    userID,
			Action:    string(audit.EventProfileCreated),
			RequestID: requestcontext.RequestID(ctx),
		}
		if err := s.auditor.Emit(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event",
				"action", event.Action, "error", err)
		}
	}
	return result, nil
}

// Get returns the bare profile row.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	profile, err := s.stores.Profiles.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Deleted() {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	return profile, nil
}

// GetView composes the full profile view: profile, visible links, active
// endorsements, and verification status. Cache hits skip the fan-out; the
// fan-out itself runs the three collection reads concurrently.
func (s *Service) GetView(ctx context.Context, userID id.UserID) (*models.View, error) {
	ctx, span := tracer.Start(ctx, "profile.GetView")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	if s.cache != nil {
		view, hit, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "profile view cache read failed",
				"user_id", userID, "error", err)
		} else if hit {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return view, nil
		}
	}

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		links        []*linkmodels.Link
		endorsements []*endorsementmodels.Endorsement
		status       verificationmodels.Status
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		links, err = s.stores.Links.ListVisibleByProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		endorsements, err = s.stores.Endorsements.ListActiveByEndorsed(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		status, err = s.verificationStatus(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "compose profile view")
	}

	if links == nil {
		links = []*linkmodels.Link{}
	}
	if endorsements == nil {
		endorsements = []*endorsementmodels.Endorsement{}
	}
	view := &models.View{
		Profile:            *profile,
		Links:              links,
		Endorsements:       endorsements,
		VerificationStatus: status,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, view); err != nil {
			s.logger.WarnContext(ctx, "profile view cache write failed",
				"user_id", userID, "error", err)
		}
	}
	return view, nil
}

func (s *Service) verificationStatus(ctx context.Context, userID id.UserID) (verificationmodels.Status, error) {
	record, err := s.stores.Verifications.FindActiveByUser(ctx, userID)
	if err == nil {
		return record.Status, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return "", err
	}
	record, err = s.stores.Verifications.FindLatestByUser(ctx, userID)
	if err == nil {
		return record.Status, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return "", err
	}
	return verificationmodels.StatusUnverified, nil
}
