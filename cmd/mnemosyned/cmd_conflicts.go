package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conflictsLimit int

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Inspect the contradiction graph",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unresolved contradictions",
	Run: func(cmd *cobra.Command, args []string) {
		runConflictsList()
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Mark a contradiction resolved",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runConflictsResolve(args[0])
	},
}

func init() {
	rootCmd.AddCommand(conflictsCmd)
	conflictsCmd.AddCommand(conflictsListCmd)
	conflictsCmd.AddCommand(conflictsResolveCmd)
	conflictsListCmd.Flags().IntVarP(&conflictsLimit, "limit", "l", 50, "maximum entries to list")
}

func runConflictsList() {
	a, err := buildApp()
	if err != nil {
		fail(exitConfigError, "setup failed: %v", err)
	}
	defer a.Close()

	edges, err := a.rel.Unresolved(conflictsLimit)
	if err != nil {
		fail(exitStorageFailure, "failed to list conflicts: %v", err)
	}

	if len(edges) == 0 {
		fmt.Println("no unresolved contradictions")
		return
	}
	for _, e := range edges {
		fmt.Printf("%s  %s <-> %s  similarity=%.3f  detected=%s\n",
			e.ID, e.SourceID, e.TargetID, e.Similarity, e.DetectedAt.Format("2006-01-02 15:04"))
	}
}

func runConflictsResolve(id string) {
	a, err := buildApp()
	if err != nil {
		fail(exitConfigError, "setup failed: %v", err)
	}
	defer a.Close()

	if err := a.rel.Resolve(id); err != nil {
		fail(exitStorageFailure, "failed to resolve conflict: %v", err)
	}
	fmt.Printf("resolved: %s\n", id)
}
