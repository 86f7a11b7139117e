package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/synapsedb/mnemosyne/internal/api"
	"github.com/synapsedb/mnemosyne/internal/daemon"
)

const serveShutdownTimeout = 10 * time.Second

var (
	noHousekeeping       bool
	housekeepingInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&noHousekeeping, "no-housekeeping", false, "disable the periodic VACUUM/checkpoint/availability-probe loop")
	serveCmd.Flags().DurationVar(&housekeepingInterval, "housekeeping-interval", daemon.DefaultHousekeepInterval, "interval between housekeeping passes")
}

func runServe() {
	a, err := buildApp()
	if err != nil {
		fail(exitConfigError, "setup failed: %v", err)
	}
	defer a.Close()

	if !a.cfg.RestAPI.Enabled {
		fail(exitConfigError, "rest_api.enabled is false in config")
	}

	server := api.NewServer(a.engine, a.rel, a.cfg)

	d := daemon.New(filepath.Dir(a.cfg.Database.Path), Version)
	if err := d.Start(a.cfg.RestAPI.Enabled, a.cfg.RestAPI.Host, a.cfg.RestAPI.Port, !noHousekeeping); err != nil {
		fail(exitConfigError, "%v", err)
	}
	defer d.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if !noHousekeeping {
		hk := daemon.NewHousekeeper(a.db, a.embedder, housekeepingInterval)
		go hk.Run(ctx)
	}

	if err := server.StartWithContext(ctx, serveShutdownTimeout); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
