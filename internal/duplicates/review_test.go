// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package duplicates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/slr-assistant/internal/fixtures"
	"github.com/pdiddy/slr-assistant/internal/funnel"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

func query(primary, secondary int) types.SavedQuery {
	return types.SavedQuery{
		ID:                 "q",
		CollectedDocuments: types.CollectedDocuments{Primary: primary, Secondary: secondary},
	}
}

func startReview(t *testing.T, primary, secondary int) *Review {
	t.Helper()
	pool, err := fixtures.DuplicatePairs()
	require.NoError(t, err)
	r := NewReview(funnel.Calculator{})
	r.Start(query(primary, secondary), pool)
	return r
}

func ids(pairs []types.DuplicatePair) []int {
	var out []int
	for _, p := range pairs {
		out = append(out, p.ID)
	}
	return out
}

func TestStartTakesDuplicateCount(t *testing.T) {
	// 30+20 = 50 records, 5 duplicates.
	r := startReview(t, 30, 20)
	assert.Equal(t, 5, r.Metrics().DuplicateCount)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(r.Pairs()))
	assert.Equal(t, 0, r.Removed())
}

func TestStartCapsAtPoolSize(t *testing.T) {
	r := startReview(t, 600, 400)
	assert.Equal(t, 100, r.Metrics().DuplicateCount)
	assert.Equal(t, 8, r.Remaining())
}

func TestStartEmptyQuery(t *testing.T) {
	r := startReview(t, 0, 0)
	assert.Equal(t, 0, r.Remaining())
	assert.Empty(t, r.Displayed())
	assert.False(t, r.HasMore())
}

func TestRemoveAllScenarioE(t *testing.T) {
	for _, tc := range []struct{ p, s int }{{30, 20}, {45, 25}, {3, 2}} {
		r := startReview(t, tc.p, tc.s)
		want := r.Metrics().DuplicateCount
		require.LessOrEqual(t, want, 8)

		r.SelectAll()
		removed := r.RemoveSelected()

		assert.Equal(t, want, removed)
		assert.Equal(t, want, r.Removed())
		assert.Empty(t, r.Pairs())
		assert.Empty(t, r.Displayed())
	}
}

func TestRemoveInSteps(t *testing.T) {
	r := startReview(t, 45, 25) // 70 records, 7 duplicates
	require.Equal(t, 7, r.Remaining())

	r.Toggle(2)
	r.Toggle(5)
	assert.Equal(t, 2, r.RemoveSelected())
	assert.Equal(t, []int{1, 3, 4, 6, 7}, ids(r.Pairs()))
	assert.Equal(t, 0, r.SelectedCount())

	r.Toggle(1)
	assert.Equal(t, 1, r.RemoveSelected())
	assert.Equal(t, 3, r.Removed())

	_, ok := r.Pair(2)
	assert.False(t, ok, "removed pairs are not restored")
}

func TestToggle(t *testing.T) {
	r := startReview(t, 30, 20)
	assert.True(t, r.Toggle(3))
	assert.True(t, r.IsSelected(3))
	assert.False(t, r.Toggle(3))
	assert.False(t, r.IsSelected(3))
	assert.False(t, r.Toggle(99), "unknown pair")
	assert.Equal(t, 0, r.SelectedCount())
}

func TestSelectAllToggles(t *testing.T) {
	r := startReview(t, 30, 20)
	r.Toggle(1)
	r.SelectAll()
	assert.Equal(t, 5, r.SelectedCount())
	r.SelectAll()
	assert.Equal(t, 0, r.SelectedCount())
}

func TestPaging(t *testing.T) {
	r := startReview(t, 45, 25) // 7 pairs
	assert.Len(t, r.Displayed(), 5)
	assert.True(t, r.HasMore())

	r.SeeMore()
	assert.Len(t, r.Displayed(), 7)
	assert.False(t, r.HasMore())

	// Removing shrinks the page to what is left.
	for _, id := range []int{1, 2, 3, 4} {
		r.Toggle(id)
	}
	r.RemoveSelected()
	assert.Equal(t, []int{5, 6, 7}, ids(r.Displayed()))
	r.SeeMore()
	assert.Len(t, r.Displayed(), 3)
}

func TestRestartResets(t *testing.T) {
	r := startReview(t, 30, 20)
	r.SelectAll()
	r.RemoveSelected()

	pool, err := fixtures.DuplicatePairs()
	require.NoError(t, err)
	r.Start(query(30, 20), pool)
	assert.Equal(t, 0, r.Removed())
	assert.Equal(t, 5, r.Remaining())
	assert.Len(t, r.Displayed(), 5)
}

func TestPair(t *testing.T) {
	r := startReview(t, 30, 20)
	p, ok := r.Pair(4)
	require.True(t, ok)
	assert.NotEmpty(t, p.Article1.Abstract)
	assert.NotEmpty(t, p.Article2.Abstract)
}

func TestQuery(t *testing.T) {
	r := NewReview(funnel.Calculator{})
	_, ok := r.Query()
	assert.False(t, ok)
	assert.Empty(t, r.Displayed())
}
