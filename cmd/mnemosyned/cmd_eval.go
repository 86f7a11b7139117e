package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synapsedb/mnemosyne/internal/eval"
)

var evalK int

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run the built-in retrieval-quality fixture and report recall@k",
	Long: `Ingests a small built-in memory set, issues its labeled queries through
the search orchestrator, and reports recall@k and mean composite score.
Developer tool for judging scorer-weight and threshold changes; not a
production code path.`,
	Run: func(cmd *cobra.Command, args []string) {
		runEval()
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().IntVarP(&evalK, "k", "k", 10, "result limit per query")
}

func runEval() {
	a, err := buildApp()
	if err != nil {
		fail(exitConfigError, "setup failed: %v", err)
	}
	defer a.Close()

	report, err := eval.Run(context.Background(), a.engine, eval.DefaultFixture(), evalK)
	if err != nil {
		exitForEngineError(err)
	}

	fmt.Print(eval.FormatReport(report))
}
