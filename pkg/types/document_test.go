// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudyTypeLabel(t *testing.T) {
	tests := []struct {
		in   StudyType
		want string
	}{
		{StudyRCT, "RCT"},
		{StudyMetaAnalysis, "Meta-analysis"},
		{StudyObservational, "Observational"},
		{StudyType(""), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Label(), "Label(%q)", tt.in)
	}
}

func TestStudyTypeValid(t *testing.T) {
	assert.True(t, StudyCohort.Valid())
	assert.False(t, StudyType("poem").Valid())
}

func TestAuthorLine(t *testing.T) {
	assert.Equal(t, "Smith, J. et al.", Document{Authors: []string{"Smith, J.", "Doe, A.", "Roe, B."}}.AuthorLine())
	assert.Equal(t, "Brown, E., Davis, M.", Document{Authors: []string{"Brown, E.", "Davis, M."}}.AuthorLine())
	assert.Equal(t, "", Document{}.AuthorLine())
}

func TestSavedQueryBrowserLayout(t *testing.T) {
	raw := `{
		"id": "1718000000000",
		"name": "ocrelizumab",
		"description": "ocrelizumab combination therapy",
		"questions": ["Which population?"],
		"answers": {"Which population?": "adults"},
		"pubmedQuery": "(ocrelizumab) AND (multiple sclerosis)",
		"collectedDocuments": {"pubmed": 600, "semanticScholar": 400},
		"paperCount": 1000,
		"freeFullTextCount": 400,
		"yearDistribution": {"2024": 12, "2025": 40}
	}`

	var q SavedQuery
	require.NoError(t, json.Unmarshal([]byte(raw), &q))

	assert.Equal(t, "1718000000000", q.ID)
	assert.Equal(t, "(ocrelizumab) AND (multiple sclerosis)", q.SearchExpression)
	assert.Equal(t, 600, q.CollectedDocuments.Primary)
	assert.Equal(t, 400, q.CollectedDocuments.Secondary)
	assert.Equal(t, 1000, q.CollectedDocuments.Total())
	assert.Equal(t, 40, q.YearDistribution[2025])
}
