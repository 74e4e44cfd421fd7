// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package screening simulates screening documents against inclusion criteria
// and keeps the state of one screening session.
//
// The simulator is a placeholder for a real scoring model. Verdicts are drawn
// at random and do not look at document content, so results carry no
// correctness guarantee. With a random seed they are not reproducible;
// injecting a seeded source makes them deterministic.
package screening

import (
	"fmt"
	"math/rand/v2"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

// Verdict thresholds on a uniform draw in [0,1).
const (
	yesBelow = 0.70
	noBelow  = 0.85
)

var (
	yesReasons = []string{
		"Statistically significant results",
		"Large sample size",
		"Well-designed methodology",
	}
	noReasons = []string{
		"Conflicting results",
		"Small effect size",
		"Potential bias in study design",
	}
	uncertainReasons = []string{
		"Limited data available",
		"Inconsistent findings across studies",
		"Potential confounding factors not addressed",
	}
)

// Justifications holds one explanation per (document, criterion) cell,
// keyed the same way as types.AnalysisResult.
type Justifications map[int]map[int]string

// Analysis is the outcome of one simulated screening run.
type Analysis struct {
	Results        types.AnalysisResult `json:"results"`
	Justifications Justifications       `json:"justifications"`
}

// Simulator draws screening verdicts from a random source.
type Simulator struct {
	rng *rand.Rand
}

// NewSimulator returns a simulator drawing from rng.
func NewSimulator(rng *rand.Rand) *Simulator {
	return &Simulator{rng: rng}
}

// NewSeededSimulator returns a simulator over a PCG source. A zero seed
// picks a random one.
func NewSeededSimulator(seed uint64) *Simulator {
	if seed == 0 {
		return NewSimulator(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}
	return NewSimulator(rand.New(rand.NewPCG(seed, seed)))
}

// Analyze assigns a verdict and a justification to every pair of selected
// document and criterion. Unselected documents get no entry. Documents and
// criteria are visited in slice order, so a seeded source yields the same
// analysis for the same input.
func (s *Simulator) Analyze(docs []types.Document, criteria []types.Criterion) Analysis {
	out := Analysis{
		Results:        types.AnalysisResult{},
		Justifications: Justifications{},
	}
	for _, d := range docs {
		if !d.Selected {
			continue
		}
		verdicts := make(map[int]types.Verdict, len(criteria))
		reasons := make(map[int]string, len(criteria))
		for _, c := range criteria {
			v := verdictFor(s.rng.Float64())
			verdicts[c.ID] = v
			reasons[c.ID] = s.justify(c.ID, v)
		}
		out.Results[d.ID] = verdicts
		out.Justifications[d.ID] = reasons
	}
	return out
}

func verdictFor(u float64) types.Verdict {
	switch {
	case u < yesBelow:
		return types.VerdictYes
	case u < noBelow:
		return types.VerdictNo
	default:
		return types.VerdictUncertain
	}
}

func (s *Simulator) justify(criterionID int, v types.Verdict) string {
	var text string
	switch v {
	case types.VerdictYes:
		text = "Strong evidence found supporting this criterion. Key points: " + s.pick(yesReasons)
	case types.VerdictNo:
		text = "Evidence does not support this criterion. Reasons include: " + s.pick(noReasons)
	default:
		text = "More information needed. " + s.pick(uncertainReasons)
	}
	return fmt.Sprintf("Justification for Criteria %d: %s", criterionID, text)
}

func (s *Simulator) pick(options []string) string {
	return options[s.rng.IntN(len(options))]
}
