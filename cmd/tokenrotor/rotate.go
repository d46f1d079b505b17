package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"tokenrotor/pkg/config"
	"tokenrotor/pkg/engine"
	"tokenrotor/pkg/logger"
	"tokenrotor/pkg/queue"
	"tokenrotor/pkg/tickets"
	"tokenrotor/pkg/ui"
)

var (
	// Rotate command flags
	batchSize    int
	runName      string
	resetFirst   bool
	deferredMode bool
	maxRetries   int
	cpBackend    string
	dbDSN        string
	redisAddr    string
)

// rotateCmd represents the rotate command
var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Regenerate tokens for all tickets in resumable batches",
	Long: `Regenerate the unique token for every ticket, processing the table in
bounded batches ordered by id.

After each committed batch the checkpoint (last processed id plus elapsed
time) is saved, so an interrupted run resumes where it stopped. With
--deferred each batch's id range is enqueued for worker processes
('tokenrotor worker') instead of being applied inline; the checkpoint then
advances on enqueue, and tokens land once a worker executes the batch.`,
	Example: `  # Rotate tokens with default settings
  tokenrotor rotate

  # Smaller batches under a named checkpoint
  tokenrotor rotate --batch-size 250 --run-name nightly

  # Discard the previous checkpoint and start over
  tokenrotor rotate --reset

  # Offload batches to worker processes via the task queue
  tokenrotor rotate --deferred --checkpoint-backend redis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runRotate()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rotateCmd)

	rotateCmd.Flags().IntVar(&batchSize, "batch-size", 500, "number of tickets per batch")
	rotateCmd.Flags().StringVar(&runName, "run-name", "", "checkpoint namespace for this run")
	rotateCmd.Flags().BoolVar(&resetFirst, "reset", false, "clear the checkpoint before starting")
	rotateCmd.Flags().BoolVar(&deferredMode, "deferred", false, "enqueue batches for worker processes instead of applying inline")
	rotateCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "maximum retry attempts for a failing batch")
	rotateCmd.Flags().StringVar(&cpBackend, "checkpoint-backend", "", "checkpoint backend (file, redis)")
	rotateCmd.Flags().StringVar(&dbDSN, "db-dsn", "", "ticket database DSN")
	rotateCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "redis address for queue and redis checkpoints")
}

func runRotate() {
	flags := globalFlags()
	if batchSize != 500 {
		flags["batch-size"] = batchSize
	}
	if runName != "" {
		flags["run-name"] = runName
	}
	if maxRetries != 3 {
		flags["max-retries"] = maxRetries
	}
	if cpBackend != "" {
		flags["checkpoint-backend"] = cpBackend
	}
	if dbDSN != "" {
		flags["db-dsn"] = dbDSN
	}
	if redisAddr != "" {
		flags["redis-addr"] = redisAddr
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)
	logger.GetLogger().WithField("version", version).Info("tokenrotor starting")

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

	checkpoints, err := newCheckpointStore(cfg)
	if err != nil {
		ui.PrintError("Failed to set up checkpoint store", err.Error())
		os.Exit(1)
	}

	if resetFirst {
		if err := checkpoints.Reset(ctx, cfg.Batch.RunName); err != nil {
			ui.PrintError("Failed to reset checkpoint", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess("Checkpoint has been reset.")
	}

	var mutator engine.Mutator
	if deferredMode {
		dispatcher := queue.NewDispatcher(redisClientOpt(cfg), cfg.Queue.Name)
		defer dispatcher.Close()
		mutator = dispatcher

		// The checkpoint will run ahead of the actual token writes.
		logger.GetLogger().Warn("Deferred mode: cursor advances on enqueue, token updates are eventually consistent")
	} else {
		mutator = tickets.NewInlineMutator(store)
	}

	reporter := ui.NewRunReporter()
	runner := engine.NewRunner(store, mutator, checkpoints, engine.Options{
		RunName:    cfg.Batch.RunName,
		BatchSize:  cfg.Batch.Size,
		MaxRetries: cfg.Batch.MaxRetries,
		Progress:   reporter.Progress,
	})

	total, err := store.Count(ctx)
	if err == nil && total > 0 {
		ui.PrintInfo("Total tickets", intString(total))
	}

	summary, runErr := runner.Run(ctx)
	reporter.Summary(summary)

	if runErr != nil {
		ui.PrintError("Run failed", runErr.Error())
		os.Exit(1)
	}
}

func intString(n int64) string {
	return strconv.FormatInt(n, 10)
}
