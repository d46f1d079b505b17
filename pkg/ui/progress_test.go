package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"tokenrotor/pkg/engine"
)

func TestRunReporterProgress(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewRunReporterTo(&buf)

	reporter.Progress(engine.ProgressSnapshot{
		Processed:      500,
		Total:          2500,
		Percent:        20.0,
		Remaining:      40 * time.Second,
		RemainingKnown: true,
	})

	out := buf.String()
	if !strings.Contains(out, "Processed 500/2500 tickets (20.00% complete)") {
		t.Errorf("Unexpected progress line: %q", out)
	}
	if !strings.Contains(out, "40.00 seconds") {
		t.Errorf("Expected remaining time in output: %q", out)
	}
}

func TestRunReporterProgressUnknownRemaining(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewRunReporterTo(&buf)

	reporter.Progress(engine.ProgressSnapshot{Processed: 0, Total: 100})

	if !strings.Contains(buf.String(), "unknown") {
		t.Errorf("Expected unknown remaining time, got %q", buf.String())
	}
}

func TestRunReporterSummary(t *testing.T) {
	t.Run("Completed", func(t *testing.T) {
		var buf bytes.Buffer
		reporter := NewRunReporterTo(&buf)

		reporter.Summary(&engine.Summary{
			State:   engine.StateCompleted,
			Total:   100,
			Elapsed: 90 * time.Second,
		})

		out := buf.String()
		if !strings.Contains(out, "All tickets have been processed.") {
			t.Errorf("Missing completion line: %q", out)
		}
		if !strings.Contains(out, "Total runtime: 90.00 seconds") {
			t.Errorf("Missing runtime line: %q", out)
		}
	})

	t.Run("EmptySet", func(t *testing.T) {
		var buf bytes.Buffer
		reporter := NewRunReporterTo(&buf)

		reporter.Summary(&engine.Summary{State: engine.StateCompleted, Total: 0})

		if !strings.Contains(buf.String(), "No tickets found to process.") {
			t.Errorf("Missing empty-set line: %q", buf.String())
		}
	})

	t.Run("Failed", func(t *testing.T) {
		var buf bytes.Buffer
		reporter := NewRunReporterTo(&buf)

		reporter.Summary(&engine.Summary{
			State:     engine.StateFailed,
			Batches:   3,
			Processed: 1500,
			Total:     2500,
		})

		if !strings.Contains(buf.String(), "rerun to resume") {
			t.Errorf("Missing resume hint: %q", buf.String())
		}
	})
}
