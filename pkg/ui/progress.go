package ui

import (
	"fmt"
	"io"
	"os"

	"tokenrotor/pkg/engine"
)

// RunReporter prints one human-readable progress line per committed batch
// and a summary when the run finishes.
type RunReporter struct {
	out io.Writer
}

// NewRunReporter creates a reporter writing to stdout.
func NewRunReporter() *RunReporter {
	return &RunReporter{out: os.Stdout}
}

// NewRunReporterTo creates a reporter writing to the given sink.
func NewRunReporterTo(out io.Writer) *RunReporter {
	return &RunReporter{out: out}
}

// Progress prints a batch-boundary progress line.
func (r *RunReporter) Progress(snap engine.ProgressSnapshot) {
	remaining := "unknown"
	if snap.RemainingKnown {
		remaining = fmt.Sprintf("%.2f seconds", snap.Remaining.Seconds())
	}

	fmt.Fprintf(r.out, "Processed %d/%d tickets (%.2f%% complete). Estimated remaining time: %s.\n",
		snap.Processed, snap.Total, snap.Percent, remaining)
}

// Summary prints the terminal line for a finished run.
func (r *RunReporter) Summary(summary *engine.Summary) {
	switch summary.State {
	case engine.StateCompleted:
		if summary.Total == 0 {
			fmt.Fprintln(r.out, Yellow("No tickets found to process."))
			return
		}
		fmt.Fprintln(r.out, Green("All tickets have been processed."))
		fmt.Fprintln(r.out, Green(fmt.Sprintf("Total runtime: %.2f seconds", summary.Elapsed.Seconds())))
	case engine.StateFailed:
		fmt.Fprintln(r.out, Red(fmt.Sprintf(
			"Run stopped after %d batches (%d/%d processed). Checkpoint kept; rerun to resume.",
			summary.Batches, summary.Processed, summary.Total)))
	}
}
