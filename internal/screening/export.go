// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package screening

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet  = "Screening"
	criteriaSheet = "Criteria"
)

// ExportXLSX writes the screening grid to path: one row per document with
// its verdict for every criterion, whether it is a full match and whether
// it was included. A second sheet lists the criteria and a justification
// for every analyzed cell.
func (s *Session) ExportXLSX(path string) error {
	s.mu.Lock()
	docs := slices.Clone(s.documents)
	criteria := slices.Clone(s.criteria)
	analysis := s.analysis
	included := map[int]bool{}
	for _, id := range s.included {
		included[id] = true
	}
	fullMatch := map[int]bool{}
	for _, d := range docs {
		fullMatch[d.ID] = s.isFullMatch(d.ID)
	}
	s.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := []any{"ID", "Title", "Date", "Study type", "Authors"}
	for _, c := range criteria {
		header = append(header, c.Description)
	}
	header = append(header, "Full match", "Included")
	if err := setRow(f, resultsSheet, 1, header); err != nil {
		return err
	}

	for i, d := range docs {
		row := []any{d.ID, d.Title, d.Date, d.StudyType.Label(), strings.Join(d.Authors, "; ")}
		for _, c := range criteria {
			row = append(row, string(analysis.Results[d.ID][c.ID]))
		}
		row = append(row, yesNo(fullMatch[d.ID]), yesNo(included[d.ID]))
		if err := setRow(f, resultsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(criteriaSheet); err != nil {
		return fmt.Errorf("adding criteria sheet: %w", err)
	}
	if err := setRow(f, criteriaSheet, 1, []any{"Document", "Criterion", "Description", "Verdict", "Justification"}); err != nil {
		return err
	}
	line := 2
	for _, d := range docs {
		verdicts, ok := analysis.Results[d.ID]
		if !ok {
			continue
		}
		for _, c := range criteria {
			v, ok := verdicts[c.ID]
			if !ok {
				continue
			}
			row := []any{d.ID, c.ID, c.Description, string(v), analysis.Justifications[d.ID][c.ID]}
			if err := setRow(f, criteriaSheet, line, row); err != nil {
				return err
			}
			line++
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
