// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package funnel derives the PRISMA funnel counts from a saved query and
// lays them out as diagram stages.
//
// The duplicate and full-match rates are placeholders with no empirical
// derivation. They are configuration, not domain truth.
package funnel

import (
	"math"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

const (
	// DefaultDuplicateRate is the share of the total volume counted as duplicates.
	DefaultDuplicateRate = 0.10

	// DefaultFullMatchRate is the share of deduplicated records matching every criterion.
	DefaultFullMatchRate = 0.18
)

// Calculator derives FunnelMetrics with a fixed pair of rates.
// The zero value uses the default rates.
type Calculator struct {
	DuplicateRate float64
	FullMatchRate float64
}

// NewCalculator builds a Calculator from config, falling back to the
// defaults for rates that are unset or outside [0,1].
func NewCalculator(cfg types.FunnelConfig) Calculator {
	return Calculator{
		DuplicateRate: rateOrDefault(cfg.DuplicateRate, DefaultDuplicateRate),
		FullMatchRate: rateOrDefault(cfg.FullMatchRate, DefaultFullMatchRate),
	}
}

func rateOrDefault(r, def float64) float64 {
	if r <= 0 || r > 1 || math.IsNaN(r) {
		return def
	}
	return r
}

// Calculate derives the funnel metrics for q from its two source counts.
func (c Calculator) Calculate(q types.SavedQuery) types.FunnelMetrics {
	return c.FromCounts(q.CollectedDocuments.Primary, q.CollectedDocuments.Secondary)
}

// FromCounts derives the funnel metrics from the primary and secondary
// source counts. Counts must be non-negative; validating them is the
// caller's job.
//
// Rounding is math.Round, which rounds halves away from zero. On the
// non-negative products here that is round-half-up.
func (c Calculator) FromCounts(primary, secondary int) types.FunnelMetrics {
	dupRate := rateOrDefault(c.DuplicateRate, DefaultDuplicateRate)
	matchRate := rateOrDefault(c.FullMatchRate, DefaultFullMatchRate)

	total := primary + secondary
	duplicates := roundCount(float64(total) * dupRate)
	post := total - duplicates

	return types.FunnelMetrics{
		TotalVolume:            total,
		PrimaryVolume:          primary,
		SecondaryVolume:        secondary,
		DuplicateCount:         duplicates,
		PostDeduplicationCount: post,
		FullMatchCount:         roundCount(float64(post) * matchRate),
	}
}

func roundCount(x float64) int {
	return int(math.Round(x))
}

// Calculate derives the funnel metrics for q using the default rates.
func Calculate(q types.SavedQuery) types.FunnelMetrics {
	return Calculator{}.Calculate(q)
}

// FromCounts derives the funnel metrics from two source counts using the
// default rates.
func FromCounts(primary, secondary int) types.FunnelMetrics {
	return Calculator{}.FromCounts(primary, secondary)
}

// ReductionPercentage is the share of deduplicated records that screening
// removes, rounded to a whole percent. It is 0 when nothing survived
// deduplication.
func ReductionPercentage(m types.FunnelMetrics) int {
	if m.PostDeduplicationCount <= 0 {
		return 0
	}
	ratio := float64(m.FullMatchCount) / float64(m.PostDeduplicationCount)
	return roundCount((1 - ratio) * 100)
}
