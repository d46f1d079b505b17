package engine

import (
	"context"
	"fmt"
	"time"

	errs "tokenrotor/pkg/errors"
	"tokenrotor/pkg/logger"
	"tokenrotor/pkg/retry"
)

// State is the runner lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Options configures a Runner.
type Options struct {
	// RunName namespaces the checkpoint; one runner per name at a time.
	RunName string
	// BatchSize bounds every batch (default 500).
	BatchSize int
	// MaxRetries bounds retry attempts for a failing batch apply.
	MaxRetries int
	// Backoff strategy between retries.
	Backoff retry.BackoffStrategy
	// Progress is invoked after every committed batch.
	Progress ProgressFunc
	// Logger for run events.
	Logger logger.Logger
}

// Summary describes a finished run.
type Summary struct {
	State     State
	Batches   int
	Processed int64
	Total     int64
	Elapsed   time.Duration
}

// Runner drives the sequential batch loop: fetch the next batch after the
// checkpoint cursor, apply it, persist the new checkpoint, report progress,
// repeat until the source is exhausted.
type Runner struct {
	source      RecordSource
	mutator     Mutator
	checkpoints CheckpointStore

	runName    string
	batchSize  int
	maxRetries int
	backoff    retry.BackoffStrategy
	progress   ProgressFunc
	logger     logger.Logger

	state State
}

// NewRunner creates a batch runner over the given collaborators.
func NewRunner(source RecordSource, mutator Mutator, checkpoints CheckpointStore, opts Options) *Runner {
	if opts.RunName == "" {
		opts.RunName = "default"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultExponentialBackoff()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &Runner{
		source:      source,
		mutator:     mutator,
		checkpoints: checkpoints,
		runName:     opts.RunName,
		batchSize:   opts.BatchSize,
		maxRetries:  opts.MaxRetries,
		backoff:     opts.Backoff,
		progress:    opts.Progress,
		logger:      opts.Logger,
		state:       StateIdle,
	}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// Run executes the batch loop until the record set is exhausted or a batch
// fails beyond its retry budget. The returned Summary is valid in both
// cases; on failure the checkpoint keeps the last committed cursor so a
// later run resumes exactly where this one stopped.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.state = StateRunning

	cp, err := r.checkpoints.Load(ctx, r.runName)
	if err != nil {
		r.state = StateFailed
		return &Summary{State: r.state}, errs.Wrap(errs.ErrorTypeStorage, "loading checkpoint", err)
	}

	total, err := r.source.Count(ctx)
	if err != nil {
		r.state = StateFailed
		return &Summary{State: r.state}, errs.Wrap(errs.ErrorTypeStorage, "counting records", err)
	}

	if total == 0 {
		r.state = StateCompleted
		r.logger.WithField("run", r.runName).Info("No records to process")
		return &Summary{State: r.state, Total: 0}, nil
	}

	cursor := cp.LastID
	prevElapsed := cp.Elapsed
	start := time.Now()

	// Resuming mid-run: everything at or below the cursor already counts.
	var processed int64
	if cursor != NoCursor {
		processed, err = r.source.CountThrough(ctx, cursor)
		if err != nil {
			r.state = StateFailed
			return &Summary{State: r.state}, errs.Wrap(errs.ErrorTypeStorage, "counting processed records", err)
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"run":        r.runName,
		"total":      total,
		"batch_size": r.batchSize,
		"cursor":     cursor,
	}).Info("Batch run starting")

	summary := &Summary{Total: total, Processed: processed}
	elapsed := prevElapsed

	for {
		batchStart := time.Now()

		batch, err := r.source.NextBatch(ctx, cursor, r.batchSize)
		if err != nil {
			r.state = StateFailed
			summary.State = r.state
			summary.Elapsed = prevElapsed + time.Since(start)
			return summary, errs.Wrap(errs.ErrorTypeStorage, "fetching next batch", err)
		}

		if len(batch) == 0 {
			break
		}

		if err := r.applyWithRetry(ctx, batch); err != nil {
			r.state = StateFailed
			summary.State = r.state
			summary.Elapsed = prevElapsed + time.Since(start)
			r.logger.WithFields(map[string]interface{}{
				"run":      r.runName,
				"start_id": batch[0].ID,
				"end_id":   batch[len(batch)-1].ID,
				"error":    err.Error(),
			}).Error("Batch failed, stopping run")
			return summary, err
		}

		cursor = batch[len(batch)-1].ID
		processed += int64(len(batch))
		elapsed = prevElapsed + time.Since(start)

		cp = Checkpoint{LastID: cursor, Elapsed: elapsed}
		if err := r.checkpoints.Save(ctx, r.runName, cp); err != nil {
			r.state = StateFailed
			summary.State = r.state
			summary.Elapsed = elapsed
			return summary, errs.Wrap(errs.ErrorTypeStorage, "saving checkpoint", err)
		}

		summary.Batches++
		summary.Processed = processed

		snap := EstimateProgress(total, processed, elapsed)
		if r.progress != nil {
			r.progress(snap)
		}
		r.logger.DebugWithFields("Batch committed", map[string]interface{}{
			"run":         r.runName,
			"start_id":    batch[0].ID,
			"end_id":      cursor,
			"size":        len(batch),
			"duration_ms": time.Since(batchStart).Milliseconds(),
		})
	}

	r.state = StateCompleted
	summary.State = r.state
	summary.Elapsed = prevElapsed + time.Since(start)

	r.logger.WithFields(map[string]interface{}{
		"run":       r.runName,
		"batches":   summary.Batches,
		"processed": summary.Processed,
		"elapsed":   summary.Elapsed.String(),
	}).Info("Batch run completed")

	return summary, nil
}

// applyWithRetry applies a single batch, retrying commit and dispatch
// failures with backoff. Neither failure leaves a partial commit behind:
// inline applies roll back as a unit and a failed enqueue dispatches
// nothing, so re-running the same batch is safe.
func (r *Runner) applyWithRetry(ctx context.Context, batch []Record) error {
	cfg := &retry.Config{
		MaxAttempts: r.maxRetries,
		Backoff:     r.backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      r.logger,
	}

	return retry.Do(func() error {
		return r.mutator.Apply(ctx, batch)
	}, cfg)
}

// Reset clears the persisted checkpoint for this runner's name.
func (r *Runner) Reset(ctx context.Context) error {
	if err := r.checkpoints.Reset(ctx, r.runName); err != nil {
		return fmt.Errorf("resetting checkpoint %q: %w", r.runName, err)
	}
	r.logger.WithField("run", r.runName).Info("Checkpoint reset")
	return nil
}
