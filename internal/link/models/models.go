package models

import (
	"time"

	"github.com/google/uuid"

	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Link is a crowdsourced social media link attached to a profile. It may be
// submitted by someone other than the profile owner; correctness is socially
// attested through distinct-actor corroborations and reports.
//
// Lifecycle: created pending → Verified once VerifyCount crosses the verify
// threshold (monotonic) → Hidden once ReportCount crosses the report
// threshold. The two thresholds race independently: a verified link can still
// be hidden later if abuse follows confirmation.
type Link struct {
	ID            id.LinkID   `json:"id"`
	ProfileUserID id.UserID   `json:"profile_user_id"`
	AddedByUserID id.UserID   `json:"added_by_user_id"`
	Platform      id.Platform `json:"platform"`
	URL           string      `json:"url"`
	Verified      bool        `json:"is_verified"`
	VerifyCount   int         `json:"verify_count"`
	ReportCount   int         `json:"report_count"`
	// Hidden soft-suppresses the link from profile rendering while keeping
	// the row for the moderator-facing audit trail.
	Hidden    bool      `json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New validates and creates a pending Link.
//
// Errors: CodeValidation for an unsupported platform or a URL whose host
// falls outside the platform's allowed domain set.
func New(profileUser, addedBy id.UserID, rawPlatform, rawURL string, now time.Time) (*Link, error) {
	if profileUser.IsNil() || addedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "link requires profile owner and submitter")
	}
	platform, err := id.ParsePlatform(rawPlatform)
	if err != nil {
		return nil, err
	}
	if err := platform.ValidateProfileURL(rawURL); err != nil {
		return nil, err
	}
	return &Link{
		ID:            id.LinkID(uuid.New()),
		ProfileUserID: profileUser,
		AddedByUserID: addedBy,
		Platform:      platform,
		URL:           rawURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// VoteKind distinguishes the two distinct-actor counters on a link.
type VoteKind string

const (
	VoteCorroborate VoteKind = "corroborate"
	VoteReport      VoteKind = "report"
)

// IsValid checks if the vote kind is one of the supported values.
func (k VoteKind) IsValid() bool {
	return k == VoteCorroborate || k == VoteReport
}
