// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the slr-assistant.
// Covers the saved literature-review query, the screening documents and
// criteria, the candidate duplicate pairs, and the derived funnel metrics.
//
// JSON field names follow the layout the browser client persists so that
// a collection exported from the browser loads unchanged.
package types

// CollectedDocuments holds the per-source document counts gathered for a
// query. Primary is the PubMed count, Secondary the Semantic Scholar count.
type CollectedDocuments struct {
	Primary   int `json:"pubmed" yaml:"pubmed"`
	Secondary int `json:"semanticScholar" yaml:"semantic_scholar"`
}

// Total returns the combined count of both sources.
func (c CollectedDocuments) Total() int {
	return c.Primary + c.Secondary
}

// SavedQuery is a completed literature-review query. It is created once when
// the authoring wizard finishes and is never modified afterwards.
type SavedQuery struct {
	// ID is an opaque identifier. Uniqueness is not enforced by the store.
	ID string `json:"id" yaml:"id"`

	// Name is the user-chosen label.
	Name string `json:"name" yaml:"name"`

	// Description is the free-text research question.
	Description string `json:"description" yaml:"description"`

	// Questions lists the clarifying questions in the order they were asked.
	Questions []string `json:"questions" yaml:"questions"`

	// Answers maps each question to the user's answer.
	Answers map[string]string `json:"answers" yaml:"answers"`

	// SearchExpression is the boolean search string produced by the
	// authoring service, with code fences already stripped.
	SearchExpression string `json:"pubmedQuery" yaml:"search_expression"`

	// CollectedDocuments holds the two source counts the funnel is derived from.
	CollectedDocuments CollectedDocuments `json:"collectedDocuments" yaml:"collected_documents"`

	// PaperCount is the total number of papers the collection targeted.
	PaperCount int `json:"paperCount" yaml:"paper_count"`

	// FreeFullTextCount is the number of papers with free full text.
	FreeFullTextCount int `json:"freeFullTextCount" yaml:"free_full_text_count"`

	// YearDistribution maps a publication year to its paper count.
	YearDistribution map[int]int `json:"yearDistribution" yaml:"year_distribution"`
}

// FunnelMetrics holds the counts derived from a query's two source counts.
// It is never persisted; it is always recomputed from a SavedQuery.
//
// JSON names match the payload the diagram export endpoint expects.
type FunnelMetrics struct {
	TotalVolume            int `json:"totalVolume" yaml:"total_volume"`
	PrimaryVolume          int `json:"pubmedVolume" yaml:"primary_volume"`
	SecondaryVolume        int `json:"semanticScholarVolume" yaml:"secondary_volume"`
	DuplicateCount         int `json:"duplicates" yaml:"duplicate_count"`
	PostDeduplicationCount int `json:"postDeduplication" yaml:"post_deduplication_count"`
	FullMatchCount         int `json:"hundredPercentMatch" yaml:"full_match_count"`
}
