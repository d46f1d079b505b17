package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"tokenrotor/pkg/config"
	"tokenrotor/pkg/logger"
	"tokenrotor/pkg/tickets"
	"tokenrotor/pkg/ui"
)

var (
	seedCount     int64
	seedBatchSize int
	seedDSN       string
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bulk-create ticket records for testing and load runs",
	Long: `Create ticket records in bulk, inserting them in batches. Every ticket
gets a fresh unique token and an unset updated flag.`,
	Example: `  # Create one million tickets
  tokenrotor seed

  # Create 50k tickets in batches of 5000
  tokenrotor seed --count 50000 --batch-size 5000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runSeed()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int64Var(&seedCount, "count", 1000000, "number of tickets to create")
	seedCmd.Flags().IntVar(&seedBatchSize, "batch-size", 10000, "number of tickets to insert per batch")
	seedCmd.Flags().StringVar(&seedDSN, "db-dsn", "", "ticket database DSN")
}

func runSeed() {
	flags := globalFlags()
	if seedDSN != "" {
		flags["db-dsn"] = seedDSN
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)

	store, err := tickets.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		ui.PrintError("Failed to open ticket database", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.EnsureSchema(ctx); err != nil {
		ui.PrintError("Failed to prepare ticket schema", err.Error())
		os.Exit(1)
	}

	start := time.Now()

	err = store.Seed(ctx, seedCount, seedBatchSize, func(created int64) {
		percentage := float64(created) / float64(seedCount) * 100
		fmt.Printf("Created %d/%d tickets (%.2f%% completed)\n", created, seedCount, percentage)
	})
	if err != nil {
		ui.PrintError("Seeding failed", err.Error())
		os.Exit(1)
	}

	elapsed := time.Since(start)
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	ui.PrintSuccess(fmt.Sprintf("Successfully created %d tickets in %d minutes and %d seconds",
		seedCount, minutes, seconds))
}
