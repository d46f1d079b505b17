// Package engine implements the resumable batch mutation loop.
//
// A Runner walks an ordered record set in bounded batches, hands each batch
// to a Mutator, and persists a Checkpoint after every committed batch so an
// interrupted run can resume without re-processing committed records. The
// Mutator either commits the batch synchronously as an atomic unit, or
// enqueues the batch's ID range for an external worker; in the deferred
// case the cursor advances on enqueue success, so the token field is only
// eventually consistent with the checkpoint.
//
// The engine is oblivious to the storage engine, the queue transport, and
// the checkpoint backing store; those are injected at construction.
package engine
