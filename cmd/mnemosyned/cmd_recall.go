package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synapsedb/mnemosyne/internal/dependencies"
	"github.com/synapsedb/mnemosyne/internal/engine"
)

var (
	recallLimit           int
	recallCandidates      int
	recallIncludeArchived bool
)

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Rank memories by the composite scorer",
	Long: `Embed query, fetch candidate memories, decay-adjust their retrievability,
rank by the composite score, and strengthen every returned result via the
testing effect.

Examples:
  mnemosyned recall "concurrency patterns"
  mnemosyned recall "deploy checklist" --limit 5`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRecall(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(recallCmd)
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "l", 10, "maximum results to return")
	recallCmd.Flags().IntVar(&recallCandidates, "candidates", 50, "candidate pool size before ranking")
	recallCmd.Flags().BoolVar(&recallIncludeArchived, "include-archived", false, "include archived-tier memories")
}

func runRecall(query string) {
	a, err := buildApp()
	if err != nil {
		fail(exitConfigError, "setup failed: %v", err)
	}
	defer a.Close()

	deps := dependencies.Check(a.cfg)
	if dependencies.ShouldShowWarning(deps, "recall") {
		if warning := dependencies.FormatShortWarning(deps); warning != "" {
			fmt.Println(warning)
		}
	}

	hits, err := a.engine.Search(context.Background(), engine.SearchInput{
		Query:           query,
		CandidateLimit:  recallCandidates,
		ResultLimit:     recallLimit,
		IncludeArchived: recallIncludeArchived,
	})
	if err != nil {
		exitForEngineError(err)
	}

	if len(hits) == 0 {
		fmt.Println("no results")
		return
	}

	for i, h := range hits {
		fmt.Printf("%d. [%.3f] (%s) %s\n", i+1, h.Score, h.State, h.Record.Content)
		fmt.Printf("   id=%s type=%s stability=%.2f review_count=%d\n",
			h.Record.ID, h.Record.Type, h.Record.Stability, h.Record.ReviewCount)
	}
	if hits[0].Degraded {
		fmt.Println("\nnote: results came from the degraded keyword fallback, not semantic search")
	}
}
