package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"tokenrotor/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tokenrotor",
	Short: "Regenerate unique tokens across a ticket table in resumable batches",
	Long: `tokenrotor rotates the unique token on every row of a tickets table,
processing the table in bounded batches so the run survives restarts.

Features:
  - Checkpointed, resumable batch processing
  - File or Redis backed checkpoints
  - Inline transactional batches, or deferred dispatch to worker processes
  - Progress reporting with estimated completion time
  - Automatic retry with exponential backoff`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .tokenrotor.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	// Version template
	rootCmd.SetVersionTemplate(`tokenrotor {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
