package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "tokenrotor/pkg/errors"
	"tokenrotor/pkg/logger"
	"tokenrotor/pkg/retry"
)

// memorySource serves n records with ids 1..n.
type memorySource struct {
	n int64
}

func (s *memorySource) Count(ctx context.Context) (int64, error) {
	return s.n, nil
}

func (s *memorySource) CountThrough(ctx context.Context, id int64) (int64, error) {
	if id > s.n {
		return s.n, nil
	}
	return id, nil
}

func (s *memorySource) NextBatch(ctx context.Context, afterID int64, limit int) ([]Record, error) {
	var batch []Record
	for id := afterID + 1; id <= s.n && len(batch) < limit; id++ {
		batch = append(batch, Record{ID: id, Token: "old"})
	}
	return batch, nil
}

// recordingMutator tracks applied ranges and can fail a set number of times.
type recordingMutator struct {
	mu        sync.Mutex
	ranges    [][2]int64
	failures  int
	failKind  errs.ErrorType
	permanent bool
}

func (m *recordingMutator) Apply(ctx context.Context, batch []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.permanent || m.failures > 0 {
		if !m.permanent {
			m.failures--
		}
		kind := m.failKind
		if kind == "" {
			kind = errs.ErrorTypeCommit
		}
		return errs.New(kind, "induced failure")
	}

	m.ranges = append(m.ranges, [2]int64{batch[0].ID, batch[len(batch)-1].ID})
	return nil
}

// memoryStore is an in-memory checkpoint store that records every save.
type memoryStore struct {
	mu      sync.Mutex
	cps     map[string]Checkpoint
	history []Checkpoint
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{cps: make(map[string]Checkpoint)}
}

func (s *memoryStore) Load(ctx context.Context, runName string) (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cps[runName], nil
}

func (s *memoryStore) Save(ctx context.Context, runName string, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cps[runName] = cp
	s.history = append(s.history, cp)
	return nil
}

func (s *memoryStore) Reset(ctx context.Context, runName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cps, runName)
	return nil
}

func newTestRunner(source RecordSource, mutator Mutator, store CheckpointStore, batchSize int) *Runner {
	return NewRunner(source, mutator, store, Options{
		RunName:   "test",
		BatchSize: batchSize,
		Backoff:   &retry.ConstantBackoff{Delay: 0},
		Logger:    logger.NewNopLogger(),
	})
}

func TestRunnerProcessesAllBatches(t *testing.T) {
	source := &memorySource{n: 2500}
	mutator := &recordingMutator{}
	store := newMemoryStore()

	runner := newTestRunner(source, mutator, store, 500)
	summary, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, summary.State)
	assert.Equal(t, 5, summary.Batches)
	assert.Equal(t, int64(2500), summary.Processed)

	// Final cursor is the last record's id.
	cp, _ := store.Load(context.Background(), "test")
	assert.Equal(t, int64(2500), cp.LastID)

	// Batches cover the id space in order without gaps or overlap.
	require.Len(t, mutator.ranges, 5)
	var prevEnd int64
	for _, r := range mutator.ranges {
		assert.Equal(t, prevEnd+1, r[0])
		prevEnd = r[1]
	}
}

func TestRunnerEmptySetShortCircuits(t *testing.T) {
	source := &memorySource{n: 0}
	mutator := &recordingMutator{}
	store := newMemoryStore()

	runner := newTestRunner(source, mutator, store, 500)
	summary, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, summary.State)
	assert.Equal(t, 0, summary.Batches)
	assert.Empty(t, mutator.ranges)
	assert.Empty(t, store.history, "no checkpoint should be written for an empty set")
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	source := &memorySource{n: 2500}
	mutator := &recordingMutator{}
	store := newMemoryStore()

	// Simulate a run interrupted after batch 3 with batch size 500.
	require.NoError(t, store.Save(context.Background(), "test", Checkpoint{
		LastID:  1500,
		Elapsed: 30 * time.Second,
	}))
	store.history = nil

	runner := newTestRunner(source, mutator, store, 500)
	summary, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, summary.State)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, int64(2500), summary.Processed)

	// The first fetched batch starts right after the saved cursor.
	require.NotEmpty(t, mutator.ranges)
	assert.Equal(t, int64(1501), mutator.ranges[0][0])

	// Elapsed time accumulates across the restart.
	cp, _ := store.Load(context.Background(), "test")
	assert.GreaterOrEqual(t, cp.Elapsed, 30*time.Second)
}

func TestRunnerCursorMonotonic(t *testing.T) {
	source := &memorySource{n: 1234}
	mutator := &recordingMutator{}
	store := newMemoryStore()

	runner := newTestRunner(source, mutator, store, 100)
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	var prev int64
	for _, cp := range store.history {
		assert.GreaterOrEqual(t, cp.LastID, prev, "cursor must never move backwards")
		prev = cp.LastID
	}
	assert.Equal(t, int64(1234), prev)
}

func TestRunnerElapsedStrictlyIncreasing(t *testing.T) {
	source := &memorySource{n: 300}
	mutator := &recordingMutator{}
	store := newMemoryStore()

	runner := newTestRunner(source, mutator, store, 100)
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, store.history, 3)
	for i := 1; i < len(store.history); i++ {
		assert.Greater(t, store.history[i].Elapsed, store.history[i-1].Elapsed)
	}
}

func TestRunnerRetriesTransientCommitFailure(t *testing.T) {
	source := &memorySource{n: 100}
	mutator := &recordingMutator{failures: 2}
	store := newMemoryStore()

	runner := newTestRunner(source, mutator, store, 100)
	summary, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, summary.State)
	assert.Equal(t, 1, summary.Batches)
}

func TestRunnerFailsAfterRetryBudget(t *testing.T) {
	source := &memorySource{n: 1000}
	mutator := &recordingMutator{permanent: true}
	store := newMemoryStore()

	runner := newTestRunner(source, mutator, store, 500)
	summary, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateFailed, summary.State)
	assert.Equal(t, 0, summary.Batches)

	// The checkpoint was never advanced past committed work.
	cp, _ := store.Load(context.Background(), "test")
	assert.Equal(t, NoCursor, cp.LastID)
}

func TestRunnerFailureKeepsLastGoodCheckpoint(t *testing.T) {
	source := &memorySource{n: 1000}
	store := newMemoryStore()

	// First batch commits, every later one fails permanently.
	mutator := &failAfterMutator{allow: 1}

	runner := newTestRunner(source, mutator, store, 500)
	summary, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateFailed, summary.State)
	assert.Equal(t, 1, summary.Batches)

	cp, _ := store.Load(context.Background(), "test")
	assert.Equal(t, int64(500), cp.LastID, "checkpoint keeps the last committed cursor")
}

// failAfterMutator succeeds for the first allow batches, then always fails.
type failAfterMutator struct {
	allow   int
	applied int
}

func (m *failAfterMutator) Apply(ctx context.Context, batch []Record) error {
	if m.applied >= m.allow {
		return errs.New(errs.ErrorTypeCommit, "storage unavailable")
	}
	m.applied++
	return nil
}

func TestRunnerDispatchFailureRetriesEnqueue(t *testing.T) {
	source := &memorySource{n: 100}
	mutator := &recordingMutator{failures: 1, failKind: errs.ErrorTypeDispatch}
	store := newMemoryStore()

	runner := newTestRunner(source, mutator, store, 100)
	summary, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, summary.State)
}

func TestRunnerCheckpointSaveFailureStopsRun(t *testing.T) {
	source := &memorySource{n: 100}
	mutator := &recordingMutator{}
	store := newMemoryStore()
	store.saveErr = errors.New("disk full")

	runner := newTestRunner(source, mutator, store, 100)
	summary, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateFailed, summary.State)
}

func TestRunnerProgressReported(t *testing.T) {
	source := &memorySource{n: 1000}
	mutator := &recordingMutator{}
	store := newMemoryStore()

	var snaps []ProgressSnapshot
	runner := NewRunner(source, mutator, store, Options{
		RunName:   "test",
		BatchSize: 250,
		Backoff:   &retry.ConstantBackoff{Delay: 0},
		Logger:    logger.NewNopLogger(),
		Progress: func(snap ProgressSnapshot) {
			snaps = append(snaps, snap)
		},
	})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, snaps, 4, "one progress snapshot per batch")

	var prev int64 = -1
	for _, snap := range snaps {
		assert.Greater(t, snap.Processed, prev, "processed count is non-decreasing")
		assert.GreaterOrEqual(t, snap.Percent, 0.0)
		assert.LessOrEqual(t, snap.Percent, 100.0)
		prev = snap.Processed
	}
	assert.Equal(t, 100.0, snaps[len(snaps)-1].Percent)
}

func TestRunnerReset(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.Save(context.Background(), "test", Checkpoint{LastID: 42}))

	runner := newTestRunner(&memorySource{n: 0}, &recordingMutator{}, store, 100)
	require.NoError(t, runner.Reset(context.Background()))

	cp, _ := store.Load(context.Background(), "test")
	assert.Equal(t, Checkpoint{}, cp)
}

func TestRunnerStateTransitions(t *testing.T) {
	source := &memorySource{n: 10}
	store := newMemoryStore()

	runner := newTestRunner(source, &recordingMutator{}, store, 10)
	assert.Equal(t, StateIdle, runner.State())

	_, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, runner.State())
}
