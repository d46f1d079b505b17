package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"tokenrotor/pkg/config"
	"tokenrotor/pkg/engine"
	"tokenrotor/pkg/logger"
	"tokenrotor/pkg/ui"
)

var (
	cpRunName       string
	cpStatusBackend string
)

// checkpointCmd represents the checkpoint command
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect and manage run checkpoints",
	Long: `Inspect and manage the persisted checkpoints that let interrupted runs
resume. Each checkpoint is keyed by run name and records the last fully
committed ticket id and the cumulative elapsed time.`,
}

// checkpointStatusCmd shows the stored checkpoint for a run
var checkpointStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored checkpoint for a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		runCheckpointStatus()
		return nil
	},
}

// checkpointResetCmd clears the stored checkpoint for a run
var checkpointResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the stored checkpoint for a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		runCheckpointReset()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointStatusCmd)
	checkpointCmd.AddCommand(checkpointResetCmd)

	checkpointCmd.PersistentFlags().StringVar(&cpRunName, "run-name", "", "checkpoint namespace")
	checkpointCmd.PersistentFlags().StringVar(&cpStatusBackend, "checkpoint-backend", "", "checkpoint backend (file, redis)")
}

func checkpointSetup() (*config.Config, engine.CheckpointStore) {
	flags := globalFlags()
	if cpRunName != "" {
		flags["run-name"] = cpRunName
	}
	if cpStatusBackend != "" {
		flags["checkpoint-backend"] = cpStatusBackend
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)

	store, err := newCheckpointStore(cfg)
	if err != nil {
		ui.PrintError("Failed to set up checkpoint store", err.Error())
		os.Exit(1)
	}

	return cfg, store
}

func runCheckpointStatus() {
	cfg, store := checkpointSetup()

	cp, err := store.Load(context.Background(), cfg.Batch.RunName)
	if err != nil {
		ui.PrintError("Failed to load checkpoint", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Run", cfg.Batch.RunName)
	ui.PrintInfo("Backend", cfg.Checkpoint.Backend)

	if cp.LastID == engine.NoCursor {
		ui.PrintWarning("No checkpoint stored; the next run starts from the beginning.")
		return
	}

	ui.PrintInfo("Last processed id", fmt.Sprintf("%d", cp.LastID))
	ui.PrintInfo("Cumulative elapsed", cp.Elapsed.String())
}

func runCheckpointReset() {
	cfg, store := checkpointSetup()

	if err := store.Reset(context.Background(), cfg.Batch.RunName); err != nil {
		ui.PrintError("Failed to reset checkpoint", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Checkpoint %q has been reset.", cfg.Batch.RunName))
}
