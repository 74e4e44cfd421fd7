// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/slr-assistant/internal/duplicates"
	"github.com/pdiddy/slr-assistant/internal/fixtures"
	"github.com/pdiddy/slr-assistant/internal/funnel"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates <id|name>",
	Short: "Review candidate duplicate records of a saved query",
	Long: `Duplicates lists candidate duplicate pairs for a saved query, five at a
time, and lets you select pairs and remove them from the review.

Commands at the prompt:
  more         show the next page
  <id>         toggle selection of a pair
  all          select all pairs, or clear the selection when all are selected
  remove       remove the selected pairs
  quit         leave the review

With --json the pairs are printed and the command exits.`,
	Args: cobra.ExactArgs(1),
	RunE: runDuplicates,
}

func runDuplicates(cmd *cobra.Command, args []string) error {
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
	pool, err := fixtures.DuplicatePairs()
	if err != nil {
		return err
	}

	review := duplicates.NewReview(funnel.NewCalculator(cfg.Funnel))
	review.Start(q, pool)
	if jsonOut {
		return writeJSON(review.Pairs())
	}

	fmt.Printf("%d potential duplicates for %q\n\n", review.Metrics().DuplicateCount, q.Name)
	printPairs(review)

	p := newPrompter(os.Stdin, os.Stdout)
	for review.Remaining() > 0 {
		line, err := p.ask(">")
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "q", "quit", "exit":
			return finishReview(review)
		case "more":
			if !review.HasMore() {
				fmt.Println("All pairs are shown.")
				continue
			}
			review.SeeMore()
		case "all":
			review.SelectAll()
		case "remove":
			n := review.RemoveSelected()
			fmt.Printf("Removed %d pairs.\n", n)
		default:
			id, err := strconv.Atoi(line)
			if err != nil || !review.Toggle(id) {
				fmt.Printf("Unknown command or pair %q.\n", line)
				continue
			}
		}
		printPairs(review)
	}
	return finishReview(review)
}

func printPairs(review *duplicates.Review) {
	for _, pair := range review.Displayed() {
		mark := " "
		if review.IsSelected(pair.ID) {
			mark = "x"
		}
		fmt.Printf("[%s] %d  proximity %.2f\n", mark, pair.ID, pair.ProximityScore)
		fmt.Printf("      1: %s\n", pair.Article1.Title)
		fmt.Printf("      2: %s\n", pair.Article2.Title)
	}
	fmt.Printf("Showing %d of %d, %d selected", len(review.Displayed()), review.Remaining(), review.SelectedCount())
	if review.HasMore() {
		fmt.Print(" (more available)")
	}
	fmt.Println()
}

func finishReview(review *duplicates.Review) error {
	fmt.Printf("Review finished: %d removed, %d remaining.\n", review.Removed(), review.Remaining())
	return nil
}

func init() {
	duplicatesCmd.Flags().Bool("json", false, "print the candidate pairs as JSON and exit")
	rootCmd.AddCommand(duplicatesCmd)
}
