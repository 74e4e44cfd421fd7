// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-assistant/internal/funnel"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics <id|name>",
	Short: "Show the funnel metrics of a saved query",
	Long: `Metrics derives the PRISMA funnel counts of a saved query from its
collected document counts: total volume, per-source volumes, duplicates,
records after deduplication and records matching every criterion.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := findQuery(store, args[0])
	if err != nil {
		return err
	}
	m := funnel.NewCalculator(cfg.Funnel).Calculate(q)

	if jsonOut {
		return writeJSON(m)
	}
	fmt.Printf("Funnel for %q\n", q.Name)
	fmt.Printf("  Total volume:        %d\n", m.TotalVolume)
	fmt.Printf("  PubMed:              %d\n", m.PrimaryVolume)
	fmt.Printf("  Semantic Scholar:    %d\n", m.SecondaryVolume)
	fmt.Printf("  Duplicates:          %d\n", m.DuplicateCount)
	fmt.Printf("  After deduplication: %d\n", m.PostDeduplicationCount)
	fmt.Printf("  100%% match:          %d\n", m.FullMatchCount)
	fmt.Printf("  Reduction:           %d%%\n", funnel.ReductionPercentage(m))
	return nil
}

func init() {
	metricsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(metricsCmd)
}
