package engine

import "time"

// ProgressSnapshot is a derived view of run progress at one batch boundary.
type ProgressSnapshot struct {
	Processed int64
	Total     int64
	Elapsed   time.Duration
	Percent   float64

	// Remaining is the estimated time left. It is only meaningful when
	// RemainingKnown is true; with nothing processed yet there is no rate
	// to extrapolate from.
	Remaining      time.Duration
	RemainingKnown bool
}

// EstimateProgress computes percent complete and estimated remaining time
// from the totals observed so far. It is a pure function: the total may
// drift if records are inserted concurrently, in which case processed is
// clamped and the figures are an approximation.
func EstimateProgress(total, processed int64, elapsed time.Duration) ProgressSnapshot {
	if processed < 0 {
		processed = 0
	}
	if total > 0 && processed > total {
		processed = total
	}

	snap := ProgressSnapshot{
		Processed: processed,
		Total:     total,
		Elapsed:   elapsed,
	}

	if total > 0 {
		snap.Percent = float64(processed) / float64(total) * 100
	}

	if processed > 0 {
		estimatedTotal := time.Duration(float64(elapsed) / float64(processed) * float64(total))
		remaining := estimatedTotal - elapsed
		if remaining < 0 {
			remaining = 0
		}
		snap.Remaining = remaining
		snap.RemainingKnown = true
	}

	return snap
}
