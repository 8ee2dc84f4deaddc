// Package service drives the verification workflow state machine. Artifact
// submissions and decision outcomes run inside the per-profile transaction
// boundary; the decision collaborator call itself runs outside it, so a slow
// decider never blocks the user's other writes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"goodcompany/internal/score"
	"goodcompany/internal/trust"
	"goodcompany/internal/verification/metrics"
	"goodcompany/internal/verification/models"
	"goodcompany/internal/verification/ports"
	verificationstore "goodcompany/internal/verification/store"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
	"goodcompany/pkg/platform/audit"
	"goodcompany/pkg/requestcontext"
)

var tracer = otel.Tracer("goodcompany/internal/verification")

// ArtifactKind names the two artifact slots on a record.
type ArtifactKind string

const (
	ArtifactDocument ArtifactKind = "document"
	ArtifactSelfie   ArtifactKind = "selfie"
)

// ViewCache invalidates cached profile views after a verification outcome
// changes what a profile read would return.
type ViewCache interface {
	Invalidate(ctx context.Context, userID id.UserID) error
}

// Config carries the artifact and decision policy knobs.
type Config struct {
	// MaxArtifactBytes is the upload size ceiling.
	MaxArtifactBytes int64
	// DecisionTimeout is the hard wall-clock bound on the decision
	// collaborator, enforced here, not trusted to the collaborator.
	DecisionTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxArtifactBytes: 10 << 20,
		DecisionTimeout:  15 * time.Second,
	}
}

type Service struct {
	tx        trust.Tx
	stores    trust.Stores
	engine    *score.Engine
	artifacts ports.ArtifactStore
	decider   ports.Decider
	cfg       Config

	logger  *slog.Logger
	auditor ports.AuditPublisher
	cache   ViewCache
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithViewCache(cache ViewCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(tx trust.Tx, stores trust.Stores, engine *score.Engine, artifacts ports.ArtifactStore, decider ports.Decider, cfg Config, opts ...Option) *Service {
	if cfg.MaxArtifactBytes <= 0 {
		cfg.MaxArtifactBytes = DefaultConfig().MaxArtifactBytes
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = DefaultConfig().DecisionTimeout
	}
	s := &Service{
		tx:        tx,
		stores:    stores,
		engine:    engine,
		artifacts: artifacts,
		decider:   decider,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitDocument stores a document artifact and advances the workflow.
// Re-submission before a decision replaces the stored reference.
func (s *Service) SubmitDocument(ctx context.Context, userID id.UserID, content []byte, mimeType string) (*models.Record, error) {
	return s.submitArtifact(ctx, userID, ArtifactDocument, content, mimeType)
}

// SubmitSelfie stores a selfie artifact and advances the workflow.
func (s *Service) SubmitSelfie(ctx context.Context, userID id.UserID, content []byte, mimeType string) (*models.Record, error) {
	return s.submitArtifact(ctx, userID, ArtifactSelfie, content, mimeType)
}

func (s *Service) submitArtifact(ctx context.Context, userID id.UserID, kind ArtifactKind, content []byte, mimeType string) (*models.Record, error) {
	if err := s.validateArtifact(content, mimeType); err != nil {
		return nil, err
	}

	// Storage failures are fatal for this submission, state unchanged.
	// Storing before taking the lock keeps the upload out of the critical
	// section; an orphaned blob from a failed transition is the artifact
	// store's garbage to collect.
	ref, err := s.artifacts.Store(ctx, content, mimeType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store artifact")
	}

	now := requestcontext.Now(ctx)
	var result *models.Record
	err = s.tx.RunInTx(ctx, userID, func(st trust.Stores) error {
		record, err := st.Verifications.FindActiveByUser(ctx, userID)
		switch {
		case err == nil:
			if !record.Status.AcceptsArtifacts() {
				return dErrors.New(dErrors.CodeConflict,
					"cannot submit while verification is "+record.Status.String())
			}
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			initial := models.StatusDocumentPending
			if kind == ArtifactSelfie {
				initial = models.StatusSelfiePending
			}
			record, err = models.NewRecord(userID, initial, now)
			if err != nil {
				return err
			}
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "find active verification")
		}

		if kind == ArtifactDocument {
			record.DocumentRef = ref
		} else {
			record.SelfieRef = ref
		}
		if record.HasBothArtifacts() {
			record.Status = models.StatusReadyForReview
		}
		record.UpdatedAt = now

		if err := st.Verifications.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save verification record")
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubmission(string(kind))
	s.emit(ctx, audit.Event{
		UserID:  userID,
		Action:  string(audit.EventArtifactUploaded),
		Subject: result.ID.String(),
		Reason:  string(kind),
	})
	return result, nil
}

func (s *Service) validateArtifact(content []byte, mimeType string) error {
	if len(content) == 0 {
		return dErrors.New(dErrors.CodeValidation, "artifact is empty")
	}
	if int64(len(content)) > s.cfg.MaxArtifactBytes {
		return dErrors.New(dErrors.CodeValidation, "artifact exceeds size ceiling")
	}
	// Sniff the real content type instead of trusting the declared one.
	detected := http.DetectContentType(content)
	switch detected {
	case "image/jpeg", "image/png", "image/webp":
	default:
		return dErrors.New(dErrors.CodeValidation, "artifact must be a jpeg, png, or webp image")
	}
	if mimeType != "" && mimeType != detected {
		return dErrors.New(dErrors.CodeValidation, "declared content type does not match artifact")
	}
	return nil
}

// RequestDecision invokes the decision collaborator exactly once and applies
// its outcome. Valid only from ReadyForReview; a concurrent duplicate loses
// the compare-and-set into Verifying and fails with a conflict instead of
// double-invoking the collaborator.
func (s *Service) RequestDecision(ctx context.Context, userID id.UserID) (*models.Record, error) {
	ctx, span := tracer.Start(ctx, "verification.RequestDecision")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	now := requestcontext.Now(ctx)

	// Phase 1: claim the record. The CAS into Verifying is the exactly-once
	// guard for the collaborator call.
	var claimed *models.Record
	err := s.tx.RunInTx(ctx, userID, func(st trust.Stores) error {
		record, err := st.Verifications.FindActiveByUser(ctx, userID)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no verification submission to decide")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "find active verification")
		}
		if record.Status == models.StatusVerifying {
			return dErrors.New(dErrors.CodeConflict, "a decision is already in progress")
		}
		if record.Status != models.StatusReadyForReview {
			return dErrors.New(dErrors.CodeConflict,
				"decision requires both artifacts, current state is "+record.Status.String())
		}
		if err := st.Verifications.TransitionStatus(ctx, record.ID, models.StatusReadyForReview, models.StatusVerifying, now); err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				return dErrors.New(dErrors.CodeConflict, "a decision is already in progress")
			}
			return err
		}
		record.Status = models.StatusVerifying
		record.UpdatedAt = now
		claimed = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Once claimed, the record must reach a terminal state even if the caller
	// disconnects, or it stays Verifying forever and every retry conflicts.
	// The decider keeps its own DecisionTimeout bound.
	ctx = context.WithoutCancel(ctx)

	// Phase 2: the collaborator wait happens outside the per-profile lock so
	// it cannot deadlock a concurrent (and correctly rejected) submission.
	decision, decisionErr := s.decide(ctx, claimed)

	// Phase 3: apply the outcome.
	return s.applyOutcome(ctx, claimed, decision, decisionErr)
}

func (s *Service) decide(ctx context.Context, record *models.Record) (ports.Decision, error) {
	ctx, span := tracer.Start(ctx, "verification.decide")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DecisionTimeout)
	defer cancel()

	start := time.Now()
	decision, err := s.decider.Decide(ctx, record.DocumentRef, record.SelfieRef)
	s.metrics.ObserveDecision(start)
	if err != nil {
		span.RecordError(err)
	}
	return decision, err
}

func (s *Service) applyOutcome(ctx context.Context, record *models.Record, decision ports.Decision, decisionErr error) (*models.Record, error) {
	now := time.Now().UTC()

	outcome := models.StatusRejected
	reason := decision.ReasonCode
	switch {
	case decisionErr == nil && decision.Approved:
		outcome = models.StatusVerified
		reason = ""
	case decisionErr == nil:
		// Rejected by the collaborator; keep its reason code.
	case errors.Is(decisionErr, context.DeadlineExceeded):
		reason = models.ReasonDecisionTimeout
		s.metrics.IncTimeout()
	default:
		// A collaborator failure leaves the user free to resubmit rather
		// than stuck in Verifying.
		reason = models.ReasonDecisionTimeout
		s.logger.ErrorContext(ctx, "decision collaborator failed",
			"user_id", record.UserID, "error", decisionErr)
	}

	err := s.tx.RunInTx(ctx, record.UserID, func(st trust.Stores) error {
		if err := st.Verifications.TransitionStatus(ctx, record.ID, models.StatusVerifying, outcome, now); err != nil {
			return err
		}
		record.Status = outcome
		record.ReasonCode = reason
		record.DecidedAt = &now
		record.UpdatedAt = now
		if err := st.Verifications.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save verification outcome")
		}

		if outcome != models.StatusVerified {
			return nil
		}
		profile, err := st.Profiles.FindByID(ctx, record.UserID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load profile for verification flip")
		}
		profile.IsVerified = true
		profile.UpdatedAt = now
		if err := st.Profiles.Save(ctx, profile); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save verified profile")
		}
		return trust.Recompute(ctx, s.engine, st, record.UserID, now)
	})
	if err != nil {
		return nil, err
	}

	s.recordOutcome(ctx, record, reason)
	return record, nil
}

func (s *Service) recordOutcome(ctx context.Context, record *models.Record, reason models.ReasonCode) {
	outcomeLabel := record.Status.String()
	action := audit.EventVerificationDecided
	if reason == models.ReasonDecisionTimeout {
		outcomeLabel = "timeout"
		action = audit.EventVerificationTimedOut
	}
	s.metrics.IncOutcome(outcomeLabel)
	s.invalidate(ctx, record.UserID)
	s.emit(ctx, audit.Event{
		UserID:   record.UserID,
		Action:   string(action),
		Subject:  record.ID.String(),
		Decision: record.Status.String(),
		Reason:   string(reason),
	})
}

// Status returns the user's current workflow state: the active record when
// one exists, the latest terminal record otherwise, and the virtual
// Unverified state for users who never submitted.
func (s *Service) Status(ctx context.Context, userID id.UserID) (models.Status, *models.Record, error) {
	record, err := s.stores.Verifications.FindActiveByUser(ctx, userID)
	if err == nil {
		return record.Status, record, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "find active verification")
	}

	record, err = s.stores.Verifications.FindLatestByUser(ctx, userID)
	if err == nil {
		return record.Status, record, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "find latest verification")
	}
	return models.StatusUnverified, nil, nil
}

// History returns the user's full verification trail, newest first.
func (s *Service) History(ctx context.Context, userID id.UserID) ([]*models.Record, error) {
	records, err := s.stores.Verifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list verification records")
	}
	return records, nil
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

var _ trust.VerificationStore = (*verificationstore.Memory)(nil)
