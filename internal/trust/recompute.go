package trust

import (
	"context"
	"time"

	"goodcompany/internal/score"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Recompute rebuilds a profile's good-company score and endorsement count
// from the active endorsements and saves the result. Callers run it inside
// the same RunInTx as the write that invalidated the old score.
func Recompute(ctx context.Context, engine *score.Engine, s Stores, userID id.UserID, now time.Time) error {
	profile, err := s.Profiles.FindByID(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeOf(err), "recompute score: load profile")
	}

	endorsements, err := s.Endorsements.ListActiveByEndorsed(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "recompute score: list endorsements")
	}

	in := score.Input{
		Verified:     profile.IsVerified,
		Endorsements: make([]score.Endorsement, 0, len(endorsements)),
	}
	for _, e := range endorsements {
		in.Endorsements = append(in.Endorsements, score.Endorsement{
			RelationshipType: e.RelationshipType,
			DurationMonths:   e.DurationMonths,
		})
	}

	profile.GoodCompanyScore = engine.Compute(in)
	profile.EndorsementCount = len(endorsements)
	profile.UpdatedAt = now

	if err := s.Profiles.Save(ctx, profile); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "recompute score: save profile")
	}
	return nil
}
