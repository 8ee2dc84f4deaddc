//go:build integration

package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	endorsementservice "goodcompany/internal/endorsement/service"
	endorsementstore "goodcompany/internal/endorsement/store"
	linkstore "goodcompany/internal/link/store"
	profilemodels "goodcompany/internal/profile/models"
	profilestore "goodcompany/internal/profile/store"
	"goodcompany/internal/score"
	"goodcompany/internal/trust"
	verificationstore "goodcompany/internal/verification/store"
	id "goodcompany/pkg/domain"
	"goodcompany/pkg/testutil/containers"
)

// Concurrent endorsements of one profile must serialize on the advisory lock:
// every writer's recompute has to see the rows committed before it, or the
// last commit wins with a count and score from a stale snapshot.
func TestTrustPostgresTxSerializesPerProfile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)

	stores := trust.Stores{
		Profiles:      profilestore.NewPostgres(pg.DB),
		Endorsements:  endorsementstore.NewPostgres(pg.DB),
		Verifications: verificationstore.NewPostgres(pg.DB),
		Links:         linkstore.NewPostgres(pg.DB),
	}
	svc := endorsementservice.NewService(
		newTrustPostgresTx(pg.DB),
		stores,
		score.NewEngine(score.DefaultPolicy()),
	)

	seed := func(name string, verified bool) id.UserID {
		userID := id.NewUserID()
		profile, err := profilemodels.New(userID, name, time.Now().UTC())
		require.NoError(t, err)
		profile.IsVerified = verified
		require.NoError(t, stores.Profiles.Save(ctx, profile))
		return userID
	}

	endorsed := seed("Blake", false)

	const writers = 8
	endorsers := make([]id.UserID, writers)
	for i := range endorsers {
		endorsers[i] = seed("Avery", true)
	}

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i, endorser := range endorsers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Endorse(ctx, endorser, endorsed, endorsementservice.EndorseInput{
				RelationshipType: "friend",
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	profile, err := stores.Profiles.FindByID(ctx, endorsed)
	require.NoError(t, err)
	require.Equal(t, writers, profile.EndorsementCount)

	active, err := stores.Endorsements.ListActiveByEndorsed(ctx, endorsed)
	require.NoError(t, err)
	require.Len(t, active, writers)
}
