// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-assistant/internal/authoring"
	"github.com/pdiddy/slr-assistant/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Author and manage saved search queries",
	Long: `Query groups the operations on saved search queries: authoring a new
one with the query-authoring service, listing, showing, exporting and
clearing the store.`,
}

var queryNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Author a new search query interactively",
	Long: `New walks through the query wizard: a name, the research question,
answers to the clarifying questions generated by the service, and review of
the generated search expression. Synonyms can be requested and appended
before the simulated document collection runs and the query is saved.

--name and --description pre-fill the first two steps.`,
	RunE: runQueryNew,
}

var queryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queries",
	RunE:  runQueryList,
}

var queryShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show one saved query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryShow,
}

var queryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved query",
	RunE:  runQueryClear,
}

var queryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved queries to YAML or JSON",
	RunE:  runQueryExport,
}

func runQueryNew(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	client := authoring.NewClient(cfg.Authoring, logger)
	estimator, err := authoring.NewEstimator(cfg.Authoring, client, logger)
	if err != nil {
		return err
	}
	w := authoring.NewWizard(authoring.WizardConfig{
		Generator:   client,
		Estimator:   estimator,
		Logger:      logger,
		CollectTick: cfg.Authoring.CollectTick,
	})

	p := newPrompter(os.Stdin, os.Stdout)
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")

	if name == "" {
		if name, err = p.askRequired("Query name"); err != nil {
			return err
		}
	}
	w.SetName(name)
	if err := w.Next(ctx); err != nil {
		return err
	}

	if description == "" {
		if description, err = p.askRequired("Research question"); err != nil {
			return err
		}
	}
	w.SetDescription(description)
	fmt.Println("Generating clarifying questions...")
	if err := retryStep(ctx, p, w.Next); err != nil {
		return err
	}

	for i, q := range w.Questions() {
		answer, err := p.ask(fmt.Sprintf("Q%d. %s", i+1, q))
		if err != nil {
			return err
		}
		if err := w.SetAnswer(q, answer); err != nil {
			return err
		}
	}
	fmt.Println("Generating search expression...")
	if err := retryStep(ctx, p, w.Next); err != nil {
		return err
	}

	printReview(w)

	if ok, err := p.confirm("Request synonyms for the expression?"); err != nil {
		return err
	} else if ok {
		if err := chooseSynonyms(ctx, p, w); err != nil {
			return err
		}
	}

	fmt.Println("Collecting documents...")
	err = w.Collect(ctx, func(c types.CollectedDocuments, total int) {
		fmt.Printf("\r  PubMed %d  Semantic Scholar %d  (%d/%d)", c.Primary, c.Secondary, c.Total(), total)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	q, err := w.Save(ctx, store)
	if err != nil {
		return err
	}
	fmt.Printf("Saved query %q (%s) with %d collected documents.\n", q.Name, q.ID, q.CollectedDocuments.Total())
	return nil
}

// retryStep runs step and, on failure, offers to try again.
func retryStep(ctx context.Context, p *prompter, step func(context.Context) error) error {
	for {
		err := step(ctx)
		if err == nil {
			return nil
		}
		var serr *authoring.ServiceError
		if !errors.As(err, &serr) {
			return err
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		again, perr := p.confirm("Try again?")
		if perr != nil {
			return perr
		}
		if !again {
			return err
		}
	}
}

func printReview(w *authoring.Wizard) {
	fmt.Println()
	fmt.Println("Search expression:")
	fmt.Printf("  %s\n", w.Expression())
	if n, ok := w.Estimate(); ok {
		fmt.Printf("Estimated results: %d\n", n)
	}
	fmt.Println()
}

func chooseSynonyms(ctx context.Context, p *prompter, w *authoring.Wizard) error {
	groups, err := w.Synonyms(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil
	}
	if len(groups) == 0 {
		fmt.Println("No synonyms suggested.")
		return nil
	}

	var options []string
	for _, g := range groups {
		fmt.Printf("%s (%s)\n", g.Concept, g.Abstraction)
		for _, s := range g.Synonyms {
			options = append(options, s)
			fmt.Printf("  %2d. %s\n", len(options), s)
		}
	}

	reply, err := p.ask("Synonyms to append (numbers, comma separated; blank for none)")
	if err != nil {
		return err
	}
	for _, field := range strings.Split(reply, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(field, "%d", &n); err != nil || n < 1 || n > len(options) {
			fmt.Fprintf(os.Stderr, "Skipping %q: not a listed number\n", field)
			continue
		}
		w.ApplySynonym(options[n-1])
	}
	printReview(w)
	return nil
}

func runQueryList(cmd *cobra.Command, args []string) error {
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

	queries := store.List()
	if jsonOut {
		return writeJSON(queries)
	}
	if len(queries) == 0 {
		fmt.Println("No saved queries.")
		return nil
	}
	for i, q := range queries {
		fmt.Printf("%d. %s  [%s]\n", i+1, q.Name, q.ID)
		fmt.Printf("   %s\n", q.SearchExpression)
		fmt.Printf("   PubMed %d, Semantic Scholar %d\n", q.CollectedDocuments.Primary, q.CollectedDocuments.Secondary)
	}
	return nil
}

func runQueryShow(cmd *cobra.Command, args []string) error {
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
	if jsonOut {
		return writeJSON(q)
	}

	fmt.Printf("Name:        %s\n", q.Name)
	fmt.Printf("ID:          %s\n", q.ID)
	fmt.Printf("Question:    %s\n", q.Description)
	fmt.Printf("Expression:  %s\n", q.SearchExpression)
	fmt.Printf("Collected:   PubMed %d, Semantic Scholar %d\n", q.CollectedDocuments.Primary, q.CollectedDocuments.Secondary)
	fmt.Printf("Papers:      %d (%d free full text)\n", q.PaperCount, q.FreeFullTextCount)
	if len(q.Questions) > 0 {
		fmt.Println("Answers:")
		for _, question := range q.Questions {
			fmt.Printf("  %s\n    %s\n", question, q.Answers[question])
		}
	}
	return nil
}

func runQueryClear(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	n := len(store.List())
	if !yes {
		ok, err := newPrompter(os.Stdin, os.Stdout).confirm(fmt.Sprintf("Delete %d saved queries?", n))
		if err != nil || !ok {
			return err
		}
	}
	if err := store.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Deleted %d saved queries.\n", n)
	return nil
}

func runQueryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		if out == "" {
			out = "export/queries.yaml"
		}
		err = store.ExportYAML(out)
	case "json":
		if out == "" {
			out = "export/queries.json"
		}
		err = store.ExportJSON(out)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", out)
	return nil
}

// writeJSON prints v as indented JSON on stdout.
func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	queryNewCmd.Flags().String("name", "", "query name (prompted when empty)")
	queryNewCmd.Flags().String("description", "", "research question (prompted when empty)")

	queryListCmd.Flags().Bool("json", false, "output as JSON")
	queryShowCmd.Flags().Bool("json", false, "output as JSON")

	queryClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	queryExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	queryExportCmd.Flags().String("out", "", "output file (default export/queries.<format>)")

	queryCmd.AddCommand(queryNewCmd)
	queryCmd.AddCommand(queryListCmd)
	queryCmd.AddCommand(queryShowCmd)
	queryCmd.AddCommand(queryClearCmd)
	queryCmd.AddCommand(queryExportCmd)

	rootCmd.AddCommand(queryCmd)
}
