package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"tokenrotor/pkg/logger"
)

// Regenerator is the part of the ticket store the worker needs.
type Regenerator interface {
	RegenerateRange(ctx context.Context, startID, endID int64) (int64, error)
}

// Worker consumes dispatched batches and applies the same mutation
// semantics as inline mode: the whole range commits in one transaction.
// Any number of workers can run in parallel; batches carry disjoint ID
// ranges so they never contend on the same rows.
type Worker struct {
	server *asynq.Server
	store  Regenerator
	logger logger.Logger
}

// NewWorker creates a worker consuming the named queue with the given
// handler concurrency.
func NewWorker(redisOpt asynq.RedisClientOpt, store Regenerator, queueName string, concurrency int) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueName: 1},
	})

	return &Worker{
		server: server,
		store:  store,
		logger: logger.GetLogger(),
	}
}

// Run blocks processing tasks until Shutdown is called or the server stops.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRegenerateRange, w.HandleRegenerateRange)

	logger.LogComponentStart("worker", map[string]interface{}{
		"task_type": TypeRegenerateRange,
	})

	return w.server.Run(mux)
}

// Shutdown stops the worker, waiting for in-flight tasks to finish.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	logger.LogComponentStop("worker", "shutdown requested")
}

// HandleRegenerateRange applies one dispatched batch. Returning an error
// lets the queue redeliver the task, which is safe: regenerating a range
// twice still leaves every token unique.
func (w *Worker) HandleRegenerateRange(ctx context.Context, task *asynq.Task) error {
	var payload RangePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads will never succeed, skip retries.
		return fmt.Errorf("failed to decode range payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.StartID <= 0 || payload.EndID < payload.StartID {
		return fmt.Errorf("invalid id range [%d, %d]: %w", payload.StartID, payload.EndID, asynq.SkipRetry)
	}

	start := time.Now()
	updated, err := w.store.RegenerateRange(ctx, payload.StartID, payload.EndID)
	if err != nil {
		w.logger.ErrorWithFields("Batch regeneration failed", map[string]interface{}{
			"start_id": payload.StartID,
			"end_id":   payload.EndID,
			"error":    err.Error(),
		})
		return err
	}

	w.logger.InfoWithFields("Batch regenerated", map[string]interface{}{
		"start_id":    payload.StartID,
		"end_id":      payload.EndID,
		"updated":     updated,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}
