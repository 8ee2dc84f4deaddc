package models

import (
	"time"

	"github.com/google/uuid"

	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Status tracks the verification workflow state machine:
//
//	(no active record) → DocumentPending / SelfiePending → ReadyForReview
//	                   → Verifying → Verified | Rejected
//
// Verified and Rejected are terminal. A rejected user re-enters the workflow
// through a fresh record; history is retained, not overwritten.
type Status string

const (
	StatusDocumentPending Status = "document_pending"
	StatusSelfiePending   Status = "selfie_pending"
	StatusReadyForReview  Status = "ready_for_review"
	StatusVerifying       Status = "verifying"
	StatusVerified        Status = "verified"
	StatusRejected        Status = "rejected"

	// StatusUnverified is the virtual initial state reported for users with
	// no active record. It is never persisted.
	StatusUnverified Status = "unverified"
)

// IsValid checks if the status is one of the persistable enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusDocumentPending, StatusSelfiePending, StatusReadyForReview,
		StatusVerifying, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the workflow has finished for this record.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// AcceptsArtifacts reports whether a document or selfie submission is legal
// in this state. Submissions while a decision is in flight are a state
// conflict, not a queued update.
func (s Status) AcceptsArtifacts() bool {
	switch s {
	case StatusDocumentPending, StatusSelfiePending, StatusReadyForReview:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ReasonCode distinguishes why a record reached a terminal state.
type ReasonCode string

const (
	// ReasonDecisionTimeout marks a rejection caused by the decision
	// collaborator missing its deadline; the user may resubmit.
	ReasonDecisionTimeout ReasonCode = "decision_timeout"
)

// ArtifactRef is an opaque handle produced by the artifact storage
// collaborator. The core stores and forwards it without interpreting it.
type ArtifactRef string

// Record is the per-user artifact-and-decision trail for one verification
// attempt. Invariant: at most one non-terminal record per user.
type Record struct {
	ID          id.VerificationID `json:"id"`
	UserID      id.UserID         `json:"user_id"`
	Status      Status            `json:"status"`
	DocumentRef ArtifactRef       `json:"document_ref,omitempty"`
	SelfieRef   ArtifactRef       `json:"selfie_ref,omitempty"`
	ReasonCode  ReasonCode        `json:"reason_code,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewRecord opens a fresh workflow record from the first submitted artifact.
func NewRecord(userID id.UserID, initial Status, now time.Time) (*Record, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verification record requires a user")
	}
	if initial != StatusDocumentPending && initial != StatusSelfiePending {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a record opens from an artifact submission")
	}
	return &Record{
		ID:          id.VerificationID(uuid.New()),
		UserID:      userID,
		Status:      initial,
		SubmittedAt: now,
		UpdatedAt:   now,
	}, nil
}

// HasBothArtifacts reports whether document and selfie are both present.
func (r *Record) HasBothArtifacts() bool {
	return r.DocumentRef != "" && r.SelfieRef != ""
}
