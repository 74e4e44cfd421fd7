// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fixtures serves the static screening documents and candidate
// duplicate pairs that stand in for real retrieval and deduplication.
package fixtures

import (
	_ "embed"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

//go:embed documents.yaml
var documentsYAML []byte

//go:embed duplicates.yaml
var duplicatesYAML []byte

// Documents returns a fresh copy of the screening documents. Callers may
// mutate the result (selection and expansion flags) freely.
func Documents() ([]types.Document, error) {
	var docs []types.Document
	if err := yaml.Unmarshal(documentsYAML, &docs); err != nil {
		return nil, fmt.Errorf("parsing document fixture: %w", err)
	}
	return docs, nil
}

// DuplicatePairs returns a fresh copy of the candidate duplicate pairs in
// review order.
func DuplicatePairs() ([]types.DuplicatePair, error) {
	var pairs []types.DuplicatePair
	if err := yaml.Unmarshal(duplicatesYAML, &pairs); err != nil {
		return nil, fmt.Errorf("parsing duplicate-pair fixture: %w", err)
	}
	return pairs, nil
}
