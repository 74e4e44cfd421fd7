// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-assistant/internal/funnel"
	"github.com/pdiddy/slr-assistant/internal/screening"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

var screenCmd = &cobra.Command{
	Use:   "screen <id|name>",
	Short: "Screen documents of a saved query against criteria",
	Long: `Screen runs the simulated screening of a saved query: every selected
document is checked against every criterion and given a Yes, No or
Uncertain verdict with a justification. Documents that get Yes for every
criterion are full matches.

Criteria come from --criterion (repeatable) and --preset (1-based index of
the preset list, see --list-presets). All documents are screened unless
--doc names some. Filters narrow the printed table; --xlsx writes the full
grid to a workbook.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScreen,
}

func runScreen(cmd *cobra.Command, args []string) error {
	if listPresets, _ := cmd.Flags().GetBool("list-presets"); listPresets {
		for i, p := range screening.Presets {
			fmt.Printf("%d. %s\n", i+1, p)
		}
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("screen needs a saved query id or name")
	}

	criteria, _ := cmd.Flags().GetStringArray("criterion")
	presets, _ := cmd.Flags().GetIntSlice("preset")
	docIDs, _ := cmd.Flags().GetIntSlice("doc")
	include, _ := cmd.Flags().GetIntSlice("include")
	seed, _ := cmd.Flags().GetUint64("seed")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	jsonOut, _ := cmd.Flags().GetBool("json")

	opts, err := filterOptsFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Screening.Seed = seed
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := findQuery(store, args[0])
	if err != nil {
		return err
	}

	session := screening.NewSession(cfg.Screening, funnel.NewCalculator(cfg.Funnel), logger)
	if err := session.SelectQuery(q); err != nil {
		return err
	}
	for _, c := range criteria {
		session.AddCriterion(c)
	}
	for _, p := range presets {
		if _, err := session.AddPreset(p - 1); err != nil {
			return err
		}
	}
	if len(docIDs) == 0 {
		session.SelectAll()
	}
	for _, id := range docIDs {
		if !session.ToggleDocument(id) {
			return fmt.Errorf("unknown document %d", id)
		}
	}

	fmt.Fprintf(os.Stderr, "Analyzing %d documents against %d criteria...\n", session.SelectedCount(), len(session.Criteria()))
	if err := session.Analyze(ctx); err != nil {
		return err
	}
	for _, id := range include {
		if !session.IsFullMatch(id) {
			return fmt.Errorf("document %d is not a full match and cannot be included", id)
		}
		session.ToggleInclude(id)
	}

	if xlsxPath != "" {
		if err := session.ExportXLSX(xlsxPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Workbook written to %s\n", xlsxPath)
	}

	docs := session.Filter(opts)
	analysis := session.Analysis()
	summary, _ := session.Summary()

	if jsonOut {
		return writeJSON(struct {
			Documents      []types.Document         `json:"documents"`
			Criteria       []types.Criterion        `json:"criteria"`
			Results        types.AnalysisResult     `json:"results"`
			Justifications screening.Justifications `json:"justifications"`
			Included       []int                    `json:"included"`
			Summary        screening.Summary        `json:"summary"`
		}{docs, session.Criteria(), analysis.Results, analysis.Justifications, session.Included(), summary})
	}

	printScreening(session, docs, analysis)
	fmt.Println()
	fmt.Printf("Total papers %d, after deduplication %d, 100%% match %d, reduction %d%%\n",
		summary.TotalPapers, summary.DeduplicatedPapers, summary.FullMatch, summary.ReductionPercentage)
	return nil
}

func filterOptsFromFlags(cmd *cobra.Command) (screening.FilterOptions, error) {
	keyword, _ := cmd.Flags().GetString("keyword")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	studyType, _ := cmd.Flags().GetString("study-type")
	onlyFull, _ := cmd.Flags().GetBool("only-full-match")

	opts := screening.FilterOptions{
		Keyword:       keyword,
		StudyType:     types.StudyType(studyType),
		OnlyFullMatch: onlyFull,
	}
	var err error
	if opts.From, err = screening.ParseDateBound(from); err != nil {
		return opts, fmt.Errorf("parsing --from: %w", err)
	}
	if opts.To, err = screening.ParseDateBound(to); err != nil {
		return opts, fmt.Errorf("parsing --to: %w", err)
	}
	return opts, nil
}

func printScreening(session *screening.Session, docs []types.Document, analysis screening.Analysis) {
	criteria := session.Criteria()
	for _, c := range criteria {
		fmt.Printf("C%d  %s\n", c.ID, c.Description)
	}
	fmt.Println()

	if len(docs) == 0 {
		fmt.Println("No documents match the filters.")
		return
	}
	included := map[int]bool{}
	for _, id := range session.Included() {
		included[id] = true
	}

	for _, d := range docs {
		var marks []string
		for _, c := range criteria {
			v, ok := analysis.Results[d.ID][c.ID]
			if !ok {
				v = "-"
			}
			marks = append(marks, fmt.Sprintf("C%d:%-9s", c.ID, v))
		}
		flag := ""
		if session.IsFullMatch(d.ID) {
			flag = " [100% match]"
		}
		if included[d.ID] {
			flag += " [included]"
		}
		fmt.Printf("%2d. %s%s\n", d.ID, d.Title, flag)
		fmt.Printf("    %s  %s\n", d.Date, d.StudyType.Label())
		fmt.Printf("    %s\n", strings.Join(marks, " "))
	}
}

func init() {
	screenCmd.Flags().StringArray("criterion", nil, "screening criterion (repeatable)")
	screenCmd.Flags().IntSlice("preset", nil, "add preset criteria by 1-based index")
	screenCmd.Flags().Bool("list-presets", false, "print the preset criteria and exit")
	screenCmd.Flags().IntSlice("doc", nil, "document ids to screen (default all)")
	screenCmd.Flags().IntSlice("include", nil, "full-match document ids to mark as included")
	screenCmd.Flags().Uint64("seed", 0, "seed for reproducible verdicts (overrides screening.seed)")

	screenCmd.Flags().String("keyword", "", "show documents whose title or abstract contains this")
	screenCmd.Flags().String("from", "", "show documents published on or after this date")
	screenCmd.Flags().String("to", "", "show documents published on or before this date")
	screenCmd.Flags().String("study-type", "", "show documents of this study type (e.g. rct)")
	screenCmd.Flags().Bool("only-full-match", false, "show only full matches")

	screenCmd.Flags().String("xlsx", "", "write the screening grid to this .xlsx file")
	screenCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(screenCmd)
}
