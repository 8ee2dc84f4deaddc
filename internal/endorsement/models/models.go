package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Endorsement is a directed attestation edge endorser → endorsed with a
// relationship category, optional declared duration, and optional free text.
// Invariants: endorser ≠ endorsed; at most one active edge per
// (endorser, endorsed) pair — a repeat submission updates in place.
type Endorsement struct {
	ID               id.EndorsementID `json:"id"`
	EndorserID       id.UserID        `json:"endorser_id"`
	EndorsedID       id.UserID        `json:"endorsed_id"`
	RelationshipType string           `json:"relationship_type"`
	// DurationMonths normalizes the declared relationship length;
	// 0 means unspecified.
	DurationMonths int        `json:"duration_months,omitempty"`
	Text           string     `json:"endorsement_text,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	RetractedAt    *time.Time `json:"retracted_at,omitempty"`
}

// New creates an Endorsement with domain invariant validation.
func New(endorser, endorsed id.UserID, relationshipType string, durationMonths int, text string, now time.Time) (*Endorsement, error) {
	if endorser.IsNil() || endorsed.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "endorsement requires both parties")
	}
	if endorser == endorsed {
		return nil, dErrors.New(dErrors.CodeValidation, "cannot endorse yourself")
	}
	relationshipType = NormalizeRelationship(relationshipType)
	if relationshipType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "relationship type is required")
	}
	if durationMonths < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "duration cannot be negative")
	}
	return &Endorsement{
		ID:               id.EndorsementID(uuid.New()),
		EndorserID:       endorser,
		EndorsedID:       endorsed,
		RelationshipType: relationshipType,
		DurationMonths:   durationMonths,
		Text:             text,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Revise applies a repeat submission to the existing edge. The same field
// validation New enforces applies here; a bad revision leaves the edge
// untouched.
func (e *Endorsement) Revise(relationshipType string, durationMonths int, text string, now time.Time) error {
	relationshipType = NormalizeRelationship(relationshipType)
	if relationshipType == "" {
		return dErrors.New(dErrors.CodeValidation, "relationship type is required")
	}
	if durationMonths < 0 {
		return dErrors.New(dErrors.CodeValidation, "duration cannot be negative")
	}
	e.RelationshipType = relationshipType
	e.DurationMonths = durationMonths
	e.Text = text
	e.UpdatedAt = now
	return nil
}

// NormalizeRelationship canonicalizes a relationship category for weight
// lookup and storage.
func NormalizeRelationship(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Active reports whether the endorsement still counts toward the score.
func (e *Endorsement) Active() bool {
	return e.RetractedAt == nil
}

// NormalizeDuration converts the free-text duration tags the client submits
// ("6 months", "2 years", "10+ years") into whole months. Unrecognized or
// empty input normalizes to 0, meaning unspecified — submissions are not
// rejected over a decorative field.
func NormalizeDuration(raw string) int {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) < 2 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(fields[0], "+"))
	if err != nil || n < 0 {
		return 0
	}
	unit := strings.TrimSuffix(fields[1], "s")
	switch unit {
	case "month":
		return n
	case "year":
		return n * 12
	}
	return 0
}
