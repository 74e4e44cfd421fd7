// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package duplicates runs a manual duplicate review over candidate pairs.
//
// Candidates come from a fixed pool rather than real deduplication. A review
// offers as many pairs as the funnel's duplicate count, lets the user pick
// pairs and removes them for good. Removed pairs are never restored.
package duplicates

import (
	"slices"

	"github.com/pdiddy/slr-assistant/internal/funnel"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

// PageSize is how many pairs are shown at first and added by SeeMore.
const PageSize = 5

// Review is the state of one duplicate review. The zero value has no query
// and no pairs. A Review is not safe for concurrent use.
type Review struct {
	calc     funnel.Calculator
	query    *types.SavedQuery
	metrics  types.FunnelMetrics
	pairs    []types.DuplicatePair
	selected map[int]bool
	shown    int
	removed  int
}

// NewReview returns an empty review deriving counts with calc.
func NewReview(calc funnel.Calculator) *Review {
	return &Review{calc: calc, selected: map[int]bool{}}
}

// Start begins reviewing q. It takes the first DuplicateCount pairs of pool,
// or the whole pool when it is smaller, and resets selection, paging and
// the removed counter. pool is copied.
func (r *Review) Start(q types.SavedQuery, pool []types.DuplicatePair) {
	r.query = &q
	r.metrics = r.calc.Calculate(q)

	n := min(max(r.metrics.DuplicateCount, 0), len(pool))
	r.pairs = slices.Clone(pool[:n])
	r.selected = map[int]bool{}
	r.shown = PageSize
	r.removed = 0
}

// Query returns the reviewed query.
func (r *Review) Query() (types.SavedQuery, bool) {
	if r.query == nil {
		return types.SavedQuery{}, false
	}
	return *r.query, true
}

// Metrics returns the funnel metrics of the reviewed query.
func (r *Review) Metrics() types.FunnelMetrics { return r.metrics }

// Pairs returns every remaining pair in review order.
func (r *Review) Pairs() []types.DuplicatePair { return slices.Clone(r.pairs) }

// Remaining is the number of pairs still under review.
func (r *Review) Remaining() int { return len(r.pairs) }

// Removed is the number of pairs removed since Start.
func (r *Review) Removed() int { return r.removed }

// Displayed returns the page of remaining pairs currently shown.
func (r *Review) Displayed() []types.DuplicatePair {
	return slices.Clone(r.pairs[:min(r.shown, len(r.pairs))])
}

// HasMore reports whether remaining pairs are hidden beyond the page.
func (r *Review) HasMore() bool { return r.shown < len(r.pairs) }

// SeeMore shows another PageSize pairs.
func (r *Review) SeeMore() { r.shown += PageSize }

// Pair returns a remaining pair by id, for side-by-side abstract comparison.
func (r *Review) Pair(id int) (types.DuplicatePair, bool) {
	for _, p := range r.pairs {
		if p.ID == id {
			return p, true
		}
	}
	return types.DuplicatePair{}, false
}

// Toggle flips the selection of a remaining pair and reports whether it is
// now selected. Unknown ids are ignored.
func (r *Review) Toggle(id int) bool {
	if _, ok := r.Pair(id); !ok {
		return false
	}
	if r.selected[id] {
		delete(r.selected, id)
		return false
	}
	r.selected[id] = true
	return true
}

// IsSelected reports whether the pair is selected.
func (r *Review) IsSelected(id int) bool { return r.selected[id] }

// SelectedCount is the number of selected pairs.
func (r *Review) SelectedCount() int { return len(r.selected) }

// SelectAll selects every remaining pair, or clears the selection when all
// of them are already selected.
func (r *Review) SelectAll() {
	if len(r.selected) == len(r.pairs) {
		r.selected = map[int]bool{}
		return
	}
	r.selected = make(map[int]bool, len(r.pairs))
	for _, p := range r.pairs {
		r.selected[p.ID] = true
	}
}

// RemoveSelected drops every selected pair, adds them to the removed
// counter and clears the selection. The page shrinks to the remaining pairs
// when fewer are left than were shown. It returns the number removed.
func (r *Review) RemoveSelected() int {
	n := len(r.selected)
	r.pairs = slices.DeleteFunc(r.pairs, func(p types.DuplicatePair) bool { return r.selected[p.ID] })
	r.removed += n
	r.selected = map[int]bool{}
	r.shown = min(r.shown, len(r.pairs))
	return n
}
