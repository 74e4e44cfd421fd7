// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package funnel

import (
	"fmt"
	"io"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

// Stage titles in diagram order.
const (
	StageIdentification = "Identification"
	StageDeduplication  = "Deduplication"
	StageScreening      = "Screening"
	StageEligibility    = "Eligibility"
	StageIncluded       = "Included"
)

// ExclusionReason is one line of a stage's excluded breakdown.
type ExclusionReason struct {
	Reason string `json:"reason" yaml:"reason"`
	Count  int    `json:"count" yaml:"count"`
}

// Stage is one box of the PRISMA flow diagram.
type Stage struct {
	Title       string            `json:"title" yaml:"title"`
	Count       int               `json:"count" yaml:"count"`
	Description string            `json:"description" yaml:"description"`
	Excluded    []ExclusionReason `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// ExcludedTotal sums the stage's excluded breakdown.
func (s Stage) ExcludedTotal() int {
	total := 0
	for _, e := range s.Excluded {
		total += e.Count
	}
	return total
}

// Stages lays out the five diagram stages for m. Counts never increase from
// one stage to the next, and a stage's excluded breakdown sums to the drop
// between its count and the next stage's.
func Stages(m types.FunnelMetrics) []Stage {
	return []Stage{
		{
			Title:       StageIdentification,
			Count:       m.TotalVolume,
			Description: "Records identified through database searching",
		},
		{
			Title:       StageDeduplication,
			Count:       m.TotalVolume,
			Description: "Records compared for deduplication",
			Excluded: []ExclusionReason{
				{Reason: "Duplicate records", Count: m.DuplicateCount},
			},
		},
		{
			Title:       StageScreening,
			Count:       m.PostDeduplicationCount,
			Description: "Records screened for title, abstract and keywords",
			Excluded: []ExclusionReason{
				{Reason: ">1 criteria not fulfilled", Count: m.PostDeduplicationCount - m.FullMatchCount},
			},
		},
		{
			Title:       StageEligibility,
			Count:       m.FullMatchCount,
			Description: "Full-text articles assessed for eligibility",
		},
		{
			Title:       StageIncluded,
			Count:       m.FullMatchCount,
			Description: "Studies included in qualitative synthesis",
		},
	}
}

// RenderText writes a plain-text flow diagram of stages to w.
func RenderText(w io.Writer, stages []Stage) {
	for i, s := range stages {
		fmt.Fprintf(w, "[%-14s] %-50s n = %d\n", s.Title, s.Description, s.Count)
		for _, e := range s.Excluded {
			fmt.Fprintf(w, "%18s excluded: %s (n = %d)\n", "", e.Reason, e.Count)
		}
		if i < len(stages)-1 {
			fmt.Fprintf(w, "%18s|\n%18sv\n", "", "")
		}
	}
}
