package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"tokenrotor/pkg/config"
	"tokenrotor/pkg/logger"
	"tokenrotor/pkg/queue"
	"tokenrotor/pkg/tickets"
	"tokenrotor/pkg/ui"
)

var (
	workerConcurrency int
	workerDSN         string
	workerRedisAddr   string
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a worker that applies deferred token batches",
	Long: `Run a long-lived worker process that consumes batch ranges enqueued by
'tokenrotor rotate --deferred' and applies the token regeneration with the
same transactional semantics as inline mode.

Multiple workers may run in parallel; dispatched batches carry disjoint id
ranges so workers never touch the same rows.`,
	Example: `  # Run a worker against the default queue
  tokenrotor worker

  # Run with higher handler concurrency
  tokenrotor worker --concurrency 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runWorker()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "number of concurrent batch handlers (default from config)")
	workerCmd.Flags().StringVar(&workerDSN, "db-dsn", "", "ticket database DSN")
	workerCmd.Flags().StringVar(&workerRedisAddr, "redis-addr", "", "redis address for the task queue")
}

func runWorker() {
	flags := globalFlags()
	if workerDSN != "" {
		flags["db-dsn"] = workerDSN
	}
	if workerRedisAddr != "" {
		flags["redis-addr"] = workerRedisAddr
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if workerConcurrency > 0 {
		cfg.Queue.Concurrency = workerConcurrency
	}

	logger.Initialize(&cfg.Logging)

	store, err := tickets.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		ui.PrintError("Failed to open ticket database", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(context.Background()); err != nil {
		ui.PrintError("Failed to prepare ticket schema", err.Error())
		os.Exit(1)
	}

	worker := queue.NewWorker(redisClientOpt(cfg), store, cfg.Queue.Name, cfg.Queue.Concurrency)

	ui.PrintInfo("Queue", cfg.Queue.Name)
	ui.PrintInfo("Concurrency", intString(int64(cfg.Queue.Concurrency)))

	// Run blocks until SIGTERM/SIGINT; asynq drains in-flight tasks first.
	if err := worker.Run(); err != nil {
		ui.PrintError("Worker stopped", err.Error())
		os.Exit(1)
	}
}
