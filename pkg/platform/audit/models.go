// Package audit captures trust-relevant actions as append-only events. Domain
// services emit events through a Publisher, which persists them to a Store
// and optionally onto a Kafka topic for downstream moderation tooling.
package audit

import (
	"context"
	"time"

	id "goodcompany/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose, enabling
// different retention policies and routing.
type EventCategory string

const (
	// CategoryTrust covers events that change a profile's trust state:
	// verification outcomes, endorsement writes, score recalculations.
	CategoryTrust EventCategory = "trust"

	// CategoryModeration covers crowdsourcing signals moderators act on:
	// link reports, threshold crossings, hidden links.
	CategoryModeration EventCategory = "moderation"

	// CategoryOperations covers routine actions kept for debugging and
	// operational visibility; these can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// UserID is the profile whose trust state the action touched.
	UserID id.UserID
	// ActorID is who performed the action when different from UserID, such
	// as an endorser or a link reporter.
	ActorID string
	Action  string
	// Subject identifies the acted-on entity (endorsement, record, link).
	Subject   string
	Decision  string
	Reason    string
	RequestID string
	// ClientIP and UserAgent describe the submitting client, for moderator
	// triage of crowdsourcing signals.
	ClientIP  string
	UserAgent string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher accepts events from domain services. Implementations may buffer;
// Emit must not block the request path.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

type AuditEvent string

const (
	// Profile events
	EventProfileCreated  AuditEvent = "profile_created"
	EventScoreRecomputed AuditEvent = "score_recomputed"

	// Verification events
	EventVerificationStarted  AuditEvent = "verification_started"
	EventArtifactUploaded     AuditEvent = "verification_artifact_uploaded"
	EventVerificationDecided  AuditEvent = "verification_decided"
	EventVerificationTimedOut AuditEvent = "verification_timed_out"

	// Endorsement events
	EventEndorsementCreated   AuditEvent = "endorsement_created"
	EventEndorsementUpdated   AuditEvent = "endorsement_updated"
	EventEndorsementRetracted AuditEvent = "endorsement_retracted"

	// Link events
	EventLinkSubmitted    AuditEvent = "link_submitted"
	EventLinkCorroborated AuditEvent = "link_corroborated"
	EventLinkReported     AuditEvent = "link_reported"
	EventLinkVerified     AuditEvent = "link_verified"
	EventLinkHidden       AuditEvent = "link_hidden"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventProfileCreated:  CategoryOperations,
	EventScoreRecomputed: CategoryOperations,

	EventVerificationStarted:  CategoryTrust,
	EventArtifactUploaded:     CategoryOperations,
	EventVerificationDecided:  CategoryTrust,
	EventVerificationTimedOut: CategoryTrust,

	EventEndorsementCreated:   CategoryTrust,
	EventEndorsementUpdated:   CategoryTrust,
	EventEndorsementRetracted: CategoryTrust,

	EventLinkSubmitted:    CategoryOperations,
	EventLinkCorroborated: CategoryModeration,
	EventLinkReported:     CategoryModeration,
	EventLinkVerified:     CategoryModeration,
	EventLinkHidden:       CategoryModeration,
}

// Category returns the event's category, defaulting to operations for
// unmapped actions.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
