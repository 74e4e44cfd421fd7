// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// StudyType classifies the design of a screened study.
type StudyType string

const (
	StudyRCT              StudyType = "rct"
	StudyObservational    StudyType = "observational"
	StudyMetaAnalysis     StudyType = "meta-analysis"
	StudySystematicReview StudyType = "systematic-review"
	StudyCohort           StudyType = "cohort"
	StudyCaseControl      StudyType = "case-control"
	StudyCaseReport       StudyType = "case-report"
	StudyCaseSeries       StudyType = "case-series"
	StudyExpertOpinion    StudyType = "expert-opinion"
	StudyNarrativeReview  StudyType = "narrative-review"
	StudyAnimal           StudyType = "animal"
	StudyInVitro          StudyType = "in-vitro"
	StudyOther            StudyType = "other"
)

// StudyTypes lists every recognised study type in display order.
var StudyTypes = []StudyType{
	StudyRCT, StudyObservational, StudyMetaAnalysis, StudySystematicReview,
	StudyCohort, StudyCaseControl, StudyCaseReport, StudyCaseSeries,
	StudyExpertOpinion, StudyNarrativeReview, StudyAnimal, StudyInVitro,
	StudyOther,
}

// Valid reports whether t is one of StudyTypes.
func (t StudyType) Valid() bool {
	for _, s := range StudyTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Label returns the human-readable tag for t ("RCT", "Meta-analysis", ...).
func (t StudyType) Label() string {
	if t == StudyRCT {
		return "RCT"
	}
	s := string(t)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PICO is a structured study summary: Population, Intervention, Comparator,
// Outcome.
type PICO struct {
	Population   string `json:"population" yaml:"population"`
	Intervention string `json:"intervention" yaml:"intervention"`
	Comparator   string `json:"comparator" yaml:"comparator"`
	Outcome      string `json:"outcome" yaml:"outcome"`
	Expanded     bool   `json:"expanded" yaml:"-"`
}

// Document is a candidate study shown on the screening screen. Documents
// come from a static fixture and are never persisted.
type Document struct {
	ID               int       `json:"id" yaml:"id"`
	Title            string    `json:"title" yaml:"title"`
	Abstract         string    `json:"abstract" yaml:"abstract"`
	Date             string    `json:"date" yaml:"date"`
	Authors          []string  `json:"authors" yaml:"authors"`
	Selected         bool      `json:"selected" yaml:"-"`
	AbstractExpanded bool      `json:"abstractExpanded" yaml:"-"`
	StudyType        StudyType `json:"studyType" yaml:"study_type"`
	PICO             PICO      `json:"pico" yaml:"pico"`
}

// AuthorLine returns "First et al." for more than two authors, otherwise the
// authors joined by ", ".
func (d Document) AuthorLine() string {
	if len(d.Authors) > 2 {
		return d.Authors[0] + " et al."
	}
	return strings.Join(d.Authors, ", ")
}

// Criterion is a user-defined inclusion criterion.
type Criterion struct {
	ID          int    `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

// Verdict is the simulated outcome of checking one document against one
// criterion.
type Verdict string

const (
	VerdictYes       Verdict = "Yes"
	VerdictNo        Verdict = "No"
	VerdictUncertain Verdict = "Uncertain"
)

// AnalysisResult maps document ID to criterion ID to verdict.
type AnalysisResult map[int]map[int]Verdict

// ArticleSummary is one side of a duplicate pair.
type ArticleSummary struct {
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`
}

// DuplicatePair is a candidate pair of records suspected to describe the
// same study. ProximityScore lies in [0,1].
type DuplicatePair struct {
	ID             int            `json:"id" yaml:"id"`
	Article1       ArticleSummary `json:"article1" yaml:"article1"`
	Article2       ArticleSummary `json:"article2" yaml:"article2"`
	ProximityScore float64        `json:"proximityScore" yaml:"proximity_score"`
}
