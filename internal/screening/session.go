// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screening

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/slr-assistant/internal/fixtures"
	"github.com/pdiddy/slr-assistant/internal/funnel"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

// ErrCannotAnalyze is returned by Analyze when CanAnalyze reports false.
var ErrCannotAnalyze = errors.New("analysis needs a query, at least one criterion and one selected document")

// Presets are the ready-made inclusion criteria offered next to free text.
var Presets = []string{
	"Select only RCTs, SLRs, meta-analysis",
	"Select papers that consider the use of Ocrelizumab to treat multiple sclerosis",
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Session holds the state of one screening pass over a saved query: the
// documents on screen, the criteria, the selection and the last analysis.
// It is safe for concurrent use, but it is meant for a single user.
type Session struct {
	mu sync.Mutex

	sim    *Simulator
	calc   funnel.Calculator
	delay  time.Duration
	sleep  Sleeper
	logger *zap.Logger

	query       *types.SavedQuery
	documents   []types.Document
	criteria    []types.Criterion
	nextID      int
	allSelected bool
	analyzing   bool
	analysis    Analysis
	analyzed    []int
	included    []int
}

// NewSession builds a session. cfg.Delay is the simulated analysis time;
// zero means no wait. cfg.Seed seeds the simulator when non-zero.
func NewSession(cfg types.ScreeningConfig, calc funnel.Calculator, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		sim:    NewSeededSimulator(cfg.Seed),
		calc:   calc,
		delay:  cfg.Delay,
		sleep:  sleepContext,
		logger: logger,
		nextID: 1,
	}
}

// SelectQuery makes q the screened query and loads a fresh copy of the
// screening documents. Previous selection, results and inclusions are
// discarded; criteria are kept.
func (s *Session) SelectQuery(q types.SavedQuery) error {
	docs, err := fixtures.Documents()
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = &q
	s.documents = docs
	s.allSelected = false
	s.analysis = Analysis{}
	s.analyzed = nil
	s.included = nil
	s.logger.Debug("selected query", zap.String("id", q.ID), zap.Int("documents", len(docs)))
	return nil
}

// Query returns the selected query.
func (s *Session) Query() (types.SavedQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.query == nil {
		return types.SavedQuery{}, false
	}
	return *s.query, true
}

// Documents returns a copy of the documents on screen.
func (s *Session) Documents() []types.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.documents)
}

// Criteria returns a copy of the current criteria.
func (s *Session) Criteria() []types.Criterion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.criteria)
}

// AddCriterion appends a criterion with the trimmed description. Blank
// descriptions are ignored and report false. Ids are never reused, even
// after removal.
func (s *Session) AddCriterion(description string) (types.Criterion, bool) {
	description = strings.TrimSpace(description)
	if description == "" {
		return types.Criterion{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := types.Criterion{ID: s.nextID, Description: description}
	s.nextID++
	s.criteria = append(s.criteria, c)
	return c, true
}

// AddPreset appends the preset criterion at index i.
func (s *Session) AddPreset(i int) (types.Criterion, error) {
	if i < 0 || i >= len(Presets) {
		return types.Criterion{}, fmt.Errorf("preset %d out of range [0,%d)", i, len(Presets))
	}
	c, _ := s.AddCriterion(Presets[i])
	return c, nil
}

// RemoveCriterion drops the criterion with the given id.
func (s *Session) RemoveCriterion(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.criteria)
	s.criteria = slices.DeleteFunc(s.criteria, func(c types.Criterion) bool { return c.ID == id })
	return len(s.criteria) != before
}

// ToggleDocument flips the selection of one document.
func (s *Session) ToggleDocument(id int) bool {
	return s.updateDocument(id, func(d *types.Document) { d.Selected = !d.Selected })
}

// ToggleAbstract flips whether the full abstract is shown.
func (s *Session) ToggleAbstract(id int) bool {
	return s.updateDocument(id, func(d *types.Document) { d.AbstractExpanded = !d.AbstractExpanded })
}

// TogglePICO flips whether the PICO summary is shown.
func (s *Session) TogglePICO(id int) bool {
	return s.updateDocument(id, func(d *types.Document) { d.PICO.Expanded = !d.PICO.Expanded })
}

func (s *Session) updateDocument(id int, fn func(*types.Document)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID == id {
			fn(&s.documents[i])
			return true
		}
	}
	return false
}

// SelectAll alternates between selecting and deselecting every document.
// It returns the new selection state.
func (s *Session) SelectAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allSelected = !s.allSelected
	for i := range s.documents {
		s.documents[i].Selected = s.allSelected
	}
	return s.allSelected
}

// SelectedCount returns the number of selected documents.
func (s *Session) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedCount()
}

func (s *Session) selectedCount() int {
	n := 0
	for _, d := range s.documents {
		if d.Selected {
			n++
		}
	}
	return n
}

// ToggleInclude adds or removes a document from the included list and
// reports whether it is now included.
func (s *Session) ToggleInclude(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.included, id); i >= 0 {
		s.included = slices.Delete(s.included, i, i+1)
		return false
	}
	s.included = append(s.included, id)
	return true
}

// Included returns the ids of the included documents in inclusion order.
func (s *Session) Included() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.included)
}

// CanAnalyze reports whether Analyze may run: a query is selected, there
// is at least one criterion and one selected document, and no analysis is
// already running.
func (s *Session) CanAnalyze() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canAnalyze()
}

func (s *Session) canAnalyze() bool {
	return s.query != nil && len(s.criteria) > 0 && s.selectedCount() > 0 && !s.analyzing
}

// Analyze waits the configured delay, then screens the selected documents
// against the current criteria with the simulator. The inputs are captured
// when the call starts. If ctx ends during the wait nothing is recorded.
func (s *Session) Analyze(ctx context.Context) error {
	s.mu.Lock()
	if !s.canAnalyze() {
		s.mu.Unlock()
		return ErrCannotAnalyze
	}
	s.analyzing = true
	docs := slices.Clone(s.documents)
	criteria := slices.Clone(s.criteria)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.analyzing = false
		s.mu.Unlock()
	}()

	if err := s.sleep(ctx, s.delay); err != nil {
		return fmt.Errorf("analysis interrupted: %w", err)
	}

	analysis := s.sim.Analyze(docs, criteria)
	var analyzed []int
	for _, d := range docs {
		if d.Selected {
			analyzed = append(analyzed, d.ID)
		}
	}

	s.mu.Lock()
	s.analysis = analysis
	s.analyzed = analyzed
	s.mu.Unlock()

	s.logger.Info("screened documents",
		zap.Int("documents", len(analyzed)),
		zap.Int("criteria", len(criteria)),
	)
	return nil
}

// Analysis returns the last analysis.
func (s *Session) Analysis() Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysis
}

// Analyzed returns the ids of the documents covered by the last analysis.
func (s *Session) Analyzed() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.analyzed)
}

// IsFullMatch reports whether every verdict recorded for the document is Yes.
// A document with no recorded verdicts is not a full match.
func (s *Session) IsFullMatch(docID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isFullMatch(docID)
}

func (s *Session) isFullMatch(docID int) bool {
	verdicts, ok := s.analysis.Results[docID]
	if !ok {
		return false
	}
	for _, v := range verdicts {
		if v != types.VerdictYes {
			return false
		}
	}
	return true
}

// Summary is the funnel overview shown beside the screening results.
type Summary struct {
	TotalPapers         int `json:"totalPapers"`
	DeduplicatedPapers  int `json:"deduplicatedPapers"`
	FullMatch           int `json:"hundredPercentMatch"`
	ReductionPercentage int `json:"reductionPercentage"`
}

// Summary derives the funnel overview for the selected query. It reports
// false when no query is selected.
func (s *Session) Summary() (Summary, bool) {
	q, ok := s.Query()
	if !ok {
		return Summary{}, false
	}
	m := s.calc.Calculate(q)
	return Summary{
		TotalPapers:         m.TotalVolume,
		DeduplicatedPapers:  m.PostDeduplicationCount,
		FullMatch:           m.FullMatchCount,
		ReductionPercentage: funnel.ReductionPercentage(m),
	}, true
}
