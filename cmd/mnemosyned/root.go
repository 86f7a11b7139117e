package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synapsedb/mnemosyne/internal/logging"
)

// Version is set during build.
var Version = "0.1.0"

var logLevelFlag string
var configFlag string

var rootCmd = &cobra.Command{
	Use:   "mnemosyned",
	Short: "Cognitive memory engine: FSRS scheduling, prediction-error admission, composite recall",
	Long: `mnemosyned stores and recalls memories through a prediction-error admission
gate, an FSRS-4.5 spaced-repetition scheduler, and a composite relevance
scorer.

Examples:
  mnemosyned remember "Go channels are like pipes between goroutines"
  mnemosyned recall "concurrency patterns"
  mnemosyned conflicts list
  mnemosyned status
  mnemosyned serve`,
	Version: Version,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file path (accepted but not read by any subcommand)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		logging.Init(logging.Config{Level: logLevelFlag})
	}
}

// Exit codes follow the admission/storage/config error taxonomy exactly:
// 0 success, 2 admission-rejected duplicate, 10 embedding failure, 11
// storage failure, 20 configuration error.
const (
	exitSuccess            = 0
	exitDuplicateRejected  = 2
	exitEmbeddingFailure   = 10
	exitStorageFailure     = 11
	exitConfigError        = 20
)
