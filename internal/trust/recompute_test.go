package trust

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	endorsementmodels "goodcompany/internal/endorsement/models"
	profilemodels "goodcompany/internal/profile/models"
	"goodcompany/internal/score"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

func TestRecompute(t *testing.T) {
	ctx := context.Background()
	stores := memoryStores()
	engine := score.NewEngine(score.DefaultPolicy())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	userID := id.NewUserID()
	profile, err := profilemodels.New(userID, "Avery", now)
	require.NoError(t, err)
	require.NoError(t, stores.Profiles.Save(ctx, profile))

	for _, rel := range []string{"family", "friend"} {
		e, err := endorsementmodels.New(id.NewUserID(), userID, rel, 0, "", now)
		require.NoError(t, err)
		require.NoError(t, stores.Endorsements.Save(ctx, e))
	}

	require.NoError(t, Recompute(ctx, engine, stores, userID, now))

	saved, err := stores.Profiles.FindByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.EndorsementCount)
	assert.InDelta(t, 1.6, saved.GoodCompanyScore, 0.001)
	assert.Equal(t, now, saved.UpdatedAt)
}

func TestRecomputeUnknownProfile(t *testing.T) {
	err := Recompute(context.Background(), score.NewEngine(score.DefaultPolicy()), memoryStores(), id.NewUserID(), time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
