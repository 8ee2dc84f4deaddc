package score

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allCategories() []Endorsement {
	return []Endorsement{
		{RelationshipType: "family", DurationMonths: 24},
		{RelationshipType: "coworker", DurationMonths: 12},
		{RelationshipType: "friend", DurationMonths: 60},
		{RelationshipType: "acquaintance", DurationMonths: 0},
		{RelationshipType: "neighbor", DurationMonths: 6},
	}
}

func TestCompute_Deterministic(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	in := Input{Verified: true, Endorsements: allCategories()}

	first := engine.Compute(in)
	for range 100 {
		require.Equal(t, first, engine.Compute(in))
	}
}

func TestCompute_OrderIndependent(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	endorsements := allCategories()
	want := engine.Compute(Input{Verified: false, Endorsements: endorsements})

	rng := rand.New(rand.NewSource(1))
	for range 50 {
		shuffled := make([]Endorsement, len(endorsements))
		copy(shuffled, endorsements)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, engine.Compute(Input{Verified: false, Endorsements: shuffled}))
	}
}

func TestCompute_EmptyUnverifiedIsFloor(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	assert.Equal(t, 0.0, engine.Compute(Input{}))
}

func TestCompute_VerifiedBeatsIdenticalUnverified(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	endorsements := allCategories()

	verified := engine.Compute(Input{Verified: true, Endorsements: endorsements})
	unverified := engine.Compute(Input{Verified: false, Endorsements: endorsements})
	assert.Greater(t, verified, unverified)
}

func TestCompute_UnverifiedCeiling(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	// Pile on far more weight than the ceiling allows.
	var many []Endorsement
	for range 50 {
		many = append(many, Endorsement{RelationshipType: "family", DurationMonths: 120})
	}

	assert.Equal(t, 7.0, engine.Compute(Input{Verified: false, Endorsements: many}))
	assert.Equal(t, 10.0, engine.Compute(Input{Verified: true, Endorsements: many}))
}

func TestCompute_RoundsToOneDecimal(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	got := engine.Compute(Input{Endorsements: []Endorsement{
		{RelationshipType: "acquaintance", DurationMonths: 30}, // 0.4 * 1.125 = 0.45
	}})
	assert.Equal(t, 0.5, got)
}

func TestDurationFactor_Saturates(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	short := engine.Compute(Input{Endorsements: []Endorsement{{RelationshipType: "friend", DurationMonths: 12}}})
	long := engine.Compute(Input{Endorsements: []Endorsement{{RelationshipType: "friend", DurationMonths: 120}}})
	longer := engine.Compute(Input{Endorsements: []Endorsement{{RelationshipType: "friend", DurationMonths: 1200}}})

	assert.Less(t, short, long)
	assert.Equal(t, long, longer)
}

func TestCompute_UnknownRelationshipUsesDefaultWeight(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	known := engine.Compute(Input{Endorsements: []Endorsement{{RelationshipType: "Family"}}})
	unknown := engine.Compute(Input{Endorsements: []Endorsement{{RelationshipType: "roommate"}}})

	assert.Equal(t, 1.0, known) // case-insensitive lookup
	assert.Equal(t, 0.3, unknown)
}
