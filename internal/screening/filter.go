// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screening

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

// FilterOptions narrows the documents on screen. Zero fields do not filter.
type FilterOptions struct {
	// Keyword matches the title or abstract, case-insensitively.
	Keyword string

	// From and To bound the publication date, both inclusive.
	From time.Time
	To   time.Time

	StudyType     types.StudyType
	OnlyFullMatch bool
}

// ParseDateBound parses a user-supplied date such as "2023-01-01" or
// "March 5, 2023". An empty string yields the zero time.
func ParseDateBound(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return dateparse.ParseIn(s, time.UTC)
}

// Filter returns the documents matching every set option, in display order.
// A document whose date cannot be parsed is dropped when a date bound is set.
func (s *Session) Filter(opts FilterOptions) []types.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyword := strings.ToLower(opts.Keyword)
	var out []types.Document
	for _, d := range s.documents {
		if keyword != "" &&
			!strings.Contains(strings.ToLower(d.Title), keyword) &&
			!strings.Contains(strings.ToLower(d.Abstract), keyword) {
			continue
		}
		if opts.StudyType != "" && d.StudyType != opts.StudyType {
			continue
		}
		if !opts.From.IsZero() || !opts.To.IsZero() {
			date, err := dateparse.ParseIn(d.Date, time.UTC)
			if err != nil {
				continue
			}
			if !opts.From.IsZero() && date.Before(opts.From) {
				continue
			}
			if !opts.To.IsZero() && date.After(opts.To) {
				continue
			}
		}
		if opts.OnlyFullMatch && !s.isFullMatch(d.ID) {
			continue
		}
		out = append(out, d)
	}
	return out
}
