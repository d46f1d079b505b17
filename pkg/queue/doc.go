// Package queue implements deferred batch execution over a Redis-backed
// task queue. The Dispatcher side is an engine.Mutator that enqueues each
// batch's ID range; the Worker side consumes those ranges and commits the
// token regeneration with the same transactional semantics as inline mode.
// Delivery is at-least-once and fire-and-forget from the runner's point of
// view.
package queue
