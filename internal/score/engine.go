// Package score computes the good-company score: a bounded aggregate over a
// profile's active endorsements and verification status. The engine is a pure
// function of its input snapshot so a recomputation from identical state is
// bit-identical, which lets callers run it inside the same transaction as the
// triggering write.
package score

import (
	"math"
	"sort"
	"strings"
)

// Policy carries the scoring constants. Values are configuration, not code:
// deployments tune them through internal/platform/config.
type Policy struct {
	// Weights maps a normalized relationship type to its per-endorsement
	// base contribution. Types missing from the table use DefaultWeight.
	Weights map[string]float64
	// DefaultWeight applies to relationship types outside the table.
	DefaultWeight float64
	// DurationSaturationMonths is where the duration factor stops growing.
	DurationSaturationMonths int
	// DurationMaxBoost is the factor gained at full saturation; a ten-year
	// relationship contributes (1 + DurationMaxBoost) times its base weight.
	DurationMaxBoost float64
	// VerifiedBonus is added once for verified profiles.
	VerifiedBonus float64
	// UnverifiedCeiling caps unverified profiles regardless of endorsement
	// volume, making verification a prerequisite for top-tier scores.
	UnverifiedCeiling float64
	// Floor and Ceiling bound the final score.
	Floor   float64
	Ceiling float64
}

// DefaultPolicy returns the documented scoring table.
func DefaultPolicy() Policy {
	return Policy{
		Weights: map[string]float64{
			"family":       1.0,
			"coworker":     0.8,
			"friend":       0.6,
			"acquaintance": 0.4,
		},
		DefaultWeight:            0.3,
		DurationSaturationMonths: 120,
		DurationMaxBoost:         0.5,
		VerifiedBonus:            1.0,
		UnverifiedCeiling:        7.0,
		Floor:                    0,
		Ceiling:                  10,
	}
}

// Endorsement is the slice of an endorsement record the engine reads.
type Endorsement struct {
	RelationshipType string
	// DurationMonths is the declared relationship length; 0 means unspecified
	// and contributes no duration boost.
	DurationMonths int
}

// Input is a profile's trust-relevant snapshot.
type Input struct {
	Verified     bool
	Endorsements []Endorsement
}

// Engine evaluates score policy. Keeping the rules centralized and testable
// is the point; nothing here touches clocks, stores, or randomness.
type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Compute returns the good-company score for the snapshot, clamped to the
// policy range and rounded to one decimal place.
func (e *Engine) Compute(in Input) float64 {
	// Sum in a canonical order so the result does not depend on how the
	// store happened to return the rows.
	contributions := make([]float64, 0, len(in.Endorsements))
	for _, end := range in.Endorsements {
		contributions = append(contributions, e.contribution(end))
	}
	sort.Float64s(contributions)

	var sum float64
	for _, c := range contributions {
		sum += c
	}

	if in.Verified {
		sum += e.policy.VerifiedBonus
	} else {
		sum = math.Min(sum, e.policy.UnverifiedCeiling)
	}

	sum = math.Max(e.policy.Floor, math.Min(sum, e.policy.Ceiling))
	return math.Round(sum*10) / 10
}

func (e *Engine) contribution(end Endorsement) float64 {
	weight, ok := e.policy.Weights[normalizeRelationship(end.RelationshipType)]
	if !ok {
		weight = e.policy.DefaultWeight
	}
	return weight * e.durationFactor(end.DurationMonths)
}

// durationFactor grows linearly with relationship length and saturates at the
// policy bound instead of growing without limit.
func (e *Engine) durationFactor(months int) float64 {
	if months <= 0 || e.policy.DurationSaturationMonths <= 0 {
		return 1
	}
	if months > e.policy.DurationSaturationMonths {
		months = e.policy.DurationSaturationMonths
	}
	return 1 + e.policy.DurationMaxBoost*float64(months)/float64(e.policy.DurationSaturationMonths)
}

func normalizeRelationship(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
