package engine

import (
	"context"
	"time"
)

// NoCursor is the cursor value before any batch has been committed.
// Record identifiers start at 1, so 0 means "start from the beginning".
const NoCursor int64 = 0

// Record is a single row in the target set. The ID is immutable and
// strictly increasing; the Token is the opaque unique value being rotated.
type Record struct {
	ID      int64
	Token   string
	Updated bool
}

// Checkpoint is the durable resume state for a named run: the last
// fully-committed record ID and the elapsed time accumulated across restarts.
type Checkpoint struct {
	LastID  int64         `json:"last_id"`
	Elapsed time.Duration `json:"elapsed"`
}

// RecordSource provides read-only, cursor-ordered access to the record set.
type RecordSource interface {
	// Count returns the total number of records in the target set.
	Count(ctx context.Context) (int64, error)

	// CountThrough returns the number of records with ID <= id.
	CountThrough(ctx context.Context, id int64) (int64, error)

	// NextBatch returns up to limit records with ID strictly greater than
	// afterID, ordered ascending by ID. An empty result signals completion.
	NextBatch(ctx context.Context, afterID int64, limit int) ([]Record, error)
}

// Mutator applies a fresh token to every record in a batch. Implementations
// either commit the batch synchronously as a unit, or enqueue its ID range
// for an external worker and return once the enqueue succeeds.
type Mutator interface {
	Apply(ctx context.Context, batch []Record) error
}

// CheckpointStore persists checkpoints keyed by run name. Load returns the
// zero-value Checkpoint when no state exists or the stored value is
// unparseable; corruption is "start over", never fatal.
type CheckpointStore interface {
	Load(ctx context.Context, runName string) (Checkpoint, error)
	Save(ctx context.Context, runName string, cp Checkpoint) error
	Reset(ctx context.Context, runName string) error
}

// ProgressFunc receives a snapshot after every committed batch.
type ProgressFunc func(ProgressSnapshot)
