package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/synapsedb/mnemosyne/internal/daemon"
	"github.com/synapsedb/mnemosyne/internal/database"
	"github.com/synapsedb/mnemosyne/internal/dependencies"
	"github.com/synapsedb/mnemosyne/pkg/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check configuration, database, and embedding-provider health",
	Run: func(cmd *cobra.Command, args []string) {
		runStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus() {
	fmt.Println("mnemosyned status")
	fmt.Println("==================")
	fmt.Println()

	allOK := true

	fmt.Print("Configuration... ")
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		allOK = false
	} else {
		fmt.Println("OK")
	}

	fmt.Print("Database... ")
	if cfg != nil {
		if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
			fmt.Println("NOT INITIALIZED (will be created on first use)")
		} else {
			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				fmt.Printf("ERROR: %v\n", err)
				allOK = false
			} else {
				fmt.Println("OK")
				db.Close()
			}
		}
		fmt.Printf("  Path: %s\n", cfg.Database.Path)
	}

	if cfg != nil {
		result := dependencies.Check(cfg)
		fmt.Print(dependencies.FormatDoctorReport(result, cfg))
		if !result.AIFeaturesAvailable() && !cfg.Search.AllowDegradedSearch {
			fmt.Println("warning: search.allow_degraded_search is false; search will fail outright without embeddings")
			allOK = false
		}
		if cfg.Qdrant.Enabled {
			fmt.Println("note: the brute-force index stays warm in-process regardless of Qdrant reachability")
		}
	}

	fmt.Print("Daemon... ")
	if cfg != nil {
		d := daemon.New(filepath.Dir(cfg.Database.Path), Version)
		st := d.Status()
		if st.Running {
			fmt.Printf("RUNNING (pid %d, uptime %s)\n", st.PID, st.Uptime.Round(1e9))
			fmt.Printf("  rest_api: enabled=%v host=%s port=%d\n", st.RESTEnabled, st.RESTHost, st.RESTPort)
			fmt.Printf("  housekeeping: enabled=%v\n", st.HousekeepEnabled)
		} else {
			fmt.Println("NOT RUNNING")
		}
	}

	fmt.Println()
	if allOK {
		fmt.Println("All systems operational.")
	} else {
		fmt.Println("Some issues detected; see above.")
		os.Exit(exitConfigError)
	}
}
