// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-assistant/internal/authoring"
	"github.com/pdiddy/slr-assistant/internal/funnel"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram <id|name>",
	Short: "Render the PRISMA funnel diagram of a saved query",
	Long: `Diagram prints the five funnel stages of a saved query as a text flow
diagram. With --export the diagram is rendered to PNG by the
query-authoring service and written to prisma_diagram.png in --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagram,
}

func runDiagram(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	export, _ := cmd.Flags().GetBool("export")
	outDir, _ := cmd.Flags().GetString("out")

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
	stages := funnel.Stages(m)

	if jsonOut {
		if err := writeJSON(stages); err != nil {
			return err
		}
	} else {
		funnel.RenderText(os.Stdout, stages)
	}

	if !export {
		return nil
	}
	png, err := authoring.NewClient(cfg.Authoring, logger).ExportDiagram(cmd.Context(), m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(outDir, authoring.DiagramFileName)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("writing diagram: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Diagram written to %s\n", path)
	return nil
}

func init() {
	diagramCmd.Flags().Bool("json", false, "output the stages as JSON")
	diagramCmd.Flags().Bool("export", false, "render a PNG through the query-authoring service")
	diagramCmd.Flags().String("out", ".", "directory for the exported PNG")
	rootCmd.AddCommand(diagramCmd)
}
