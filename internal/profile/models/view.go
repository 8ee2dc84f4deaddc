package models

import (
	endorsementmodels "goodcompany/internal/endorsement/models"
	linkmodels "goodcompany/internal/link/models"
	verificationmodels "goodcompany/internal/verification/models"
)

// View is the composed read model for profile rendering: the profile row,
// its visible links, its active endorsements, and the current verification
// status. Purely a projection; it carries no invariants of its own.
type View struct {
	Profile            Profile                          `json:"profile"`
	Links              []*linkmodels.Link               `json:"links"`
	Endorsements       []*endorsementmodels.Endorsement `json:"endorsements"`
	VerificationStatus verificationmodels.Status        `json:"verification_status"`
}
