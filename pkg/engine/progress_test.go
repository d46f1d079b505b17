package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimateProgress(t *testing.T) {
	t.Run("NothingProcessedYet", func(t *testing.T) {
		snap := EstimateProgress(1000, 0, 5*time.Second)

		assert.Equal(t, 0.0, snap.Percent)
		assert.False(t, snap.RemainingKnown, "remaining time must be unknown before any progress")
	})

	t.Run("EmptyTotal", func(t *testing.T) {
		snap := EstimateProgress(0, 0, 0)

		assert.Equal(t, 0.0, snap.Percent)
		assert.False(t, snap.RemainingKnown)
	})

	t.Run("Halfway", func(t *testing.T) {
		snap := EstimateProgress(1000, 500, 10*time.Second)

		assert.Equal(t, 50.0, snap.Percent)
		assert.True(t, snap.RemainingKnown)
		assert.Equal(t, 10*time.Second, snap.Remaining)
	})

	t.Run("Complete", func(t *testing.T) {
		snap := EstimateProgress(1000, 1000, 20*time.Second)

		assert.Equal(t, 100.0, snap.Percent)
		assert.True(t, snap.RemainingKnown)
		assert.Equal(t, time.Duration(0), snap.Remaining)
	})

	t.Run("ProcessedExceedsTotalClamps", func(t *testing.T) {
		// Concurrent deletes can shrink the total below what was processed.
		snap := EstimateProgress(1000, 1200, 20*time.Second)

		assert.Equal(t, int64(1000), snap.Processed)
		assert.Equal(t, 100.0, snap.Percent)
		assert.Equal(t, time.Duration(0), snap.Remaining)
	})

	t.Run("NegativeProcessedClamps", func(t *testing.T) {
		snap := EstimateProgress(1000, -5, time.Second)

		assert.Equal(t, int64(0), snap.Processed)
		assert.False(t, snap.RemainingKnown)
	})

	t.Run("RemainingNeverNegative", func(t *testing.T) {
		// total = 0 with processed > 0 would extrapolate to a negative
		// remaining; it must floor at zero.
		snap := EstimateProgress(0, 10, 10*time.Second)

		assert.True(t, snap.RemainingKnown)
		assert.GreaterOrEqual(t, snap.Remaining, time.Duration(0))
	})
}
