package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synapsedb/mnemosyne/internal/dependencies"
	"github.com/synapsedb/mnemosyne/internal/engine"
	"github.com/synapsedb/mnemosyne/internal/types"
)

var (
	rememberImportance float64
	rememberFilePath   string
	rememberTitle      string
	rememberType       string
	rememberTier       string
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a memory through the admission gate",
	Long: `Classify, embed, and run content through the prediction-error admission
gate, then persist the resulting decision (create/reinforce/merge/reject).

Examples:
  mnemosyned remember "Go channels are like pipes between goroutines"
  mnemosyned remember "fixed the flaky auth test" --importance 0.8
  mnemosyned remember "project uses semantic versioning" --file-path docs/CONVENTIONS.md`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRemember(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(rememberCmd)
	rememberCmd.Flags().Float64VarP(&rememberImportance, "importance", "i", 0.5, "importance in [0,1]")
	rememberCmd.Flags().StringVar(&rememberFilePath, "file-path", "", "source file path, used by the type classifier")
	rememberCmd.Flags().StringVar(&rememberTitle, "title", "", "title, used by the type classifier")
	rememberCmd.Flags().StringVar(&rememberType, "type", "", "explicit frontmatter memory type override")
	rememberCmd.Flags().StringVar(&rememberTier, "tier", "", "explicit frontmatter tier marker override")
}

func runRemember(content string) {
	a, err := buildApp()
	if err != nil {
		fail(exitConfigError, "setup failed: %v", err)
	}
	defer a.Close()

	deps := dependencies.Check(a.cfg)
	if dependencies.ShouldShowWarning(deps, "remember") {
		if warning := dependencies.FormatShortWarning(deps); warning != "" {
			fmt.Println(warning)
		}
	}

	result, err := a.engine.Save(context.Background(), engine.SaveInput{
		Content:               content,
		FilePath:              rememberFilePath,
		Title:                 rememberTitle,
		Importance:            rememberImportance,
		FrontmatterMemoryType: rememberType,
		FrontmatterTier:       rememberTier,
	})
	if err != nil {
		exitForEngineError(err)
	}

	switch result.Decision {
	case types.DecisionCreate:
		fmt.Printf("stored: %s (type=%s)\n", result.Record.ID, result.Classification.Type)
		if result.MatchedID != "" {
			fmt.Printf("  contradicts: %s (similarity=%.3f)\n", result.MatchedID, result.Similarity)
		}
	case types.DecisionMerge:
		fmt.Printf("merged with caller disposition: new=%s matched=%s (similarity=%.3f)\n",
			result.Record.ID, result.MatchedID, result.Similarity)
	case types.DecisionReinforce:
		fmt.Printf("reinforced existing memory: %s (similarity=%.3f)\n", result.MatchedID, result.Similarity)
	case types.DecisionReject:
		fmt.Printf("duplicate rejected: matches %s (similarity=%.3f)\n", result.MatchedID, result.Similarity)
		if result.Degraded {
			fmt.Println("  note: admission ran in degraded (keyword-only) mode")
		}
		os.Exit(exitDuplicateRejected)
	}
}
