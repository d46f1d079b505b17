package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"tokenrotor/pkg/engine"
	errs "tokenrotor/pkg/errors"
	"tokenrotor/pkg/logger"
)

// TypeRegenerateRange is the task type for deferred token regeneration.
const TypeRegenerateRange = "tickets:regenerate"

// RangePayload is the task payload: the inclusive ID range of one batch.
type RangePayload struct {
	StartID int64 `json:"start_id"`
	EndID   int64 `json:"end_id"`
}

// NewRegenerateTask builds a task carrying the batch's ID range.
func NewRegenerateTask(startID, endID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(RangePayload{StartID: startID, EndID: endID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode range payload: %w", err)
	}
	return asynq.NewTask(TypeRegenerateRange, payload), nil
}

// Dispatcher enqueues each batch's ID range for out-of-process execution
// and returns as soon as the enqueue succeeds. It implements engine.Mutator;
// the runner's cursor advances on enqueue, so the tokens themselves land
// eventually, at-least-once, whenever a worker picks the task up.
type Dispatcher struct {
	client *asynq.Client
	queue  string
	logger logger.Logger
}

// NewDispatcher creates a dispatcher publishing to the named queue.
func NewDispatcher(redisOpt asynq.RedisClientOpt, queueName string) *Dispatcher {
	return &Dispatcher{
		client: asynq.NewClient(redisOpt),
		queue:  queueName,
		logger: logger.GetLogger(),
	}
}

// Apply enqueues the batch's ID range. A failed enqueue dispatches nothing,
// so the runner may retry the same batch safely.
func (d *Dispatcher) Apply(ctx context.Context, batch []engine.Record) error {
	if len(batch) == 0 {
		return nil
	}

	startID := batch[0].ID
	endID := batch[len(batch)-1].ID

	task, err := NewRegenerateTask(startID, endID)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeDispatch, "building regenerate task", err)
	}

	info, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeDispatch, "enqueueing token batch", err)
	}

	d.logger.DebugWithFields("Batch dispatched", map[string]interface{}{
		"task_id":  info.ID,
		"queue":    info.Queue,
		"start_id": startID,
		"end_id":   endID,
	})

	return nil
}

// Close releases the underlying queue client.
func (d *Dispatcher) Close() error {
	return d.client.Close()
}
