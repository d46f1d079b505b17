package tickets

import (
	"context"

	"tokenrotor/pkg/engine"
	errs "tokenrotor/pkg/errors"
)

// InlineMutator applies each batch synchronously: every ticket in the
// batch gets a fresh token inside one transaction, all-or-nothing, before
// Apply returns.
type InlineMutator struct {
	store *Store
}

// NewInlineMutator creates a mutator that commits batches through the store.
func NewInlineMutator(store *Store) *InlineMutator {
	return &InlineMutator{store: store}
}

// Apply regenerates tokens for the batch's ID range. On failure nothing is
// committed and the error carries the commit taxonomy kind so the runner
// retries the same batch.
func (m *InlineMutator) Apply(ctx context.Context, batch []engine.Record) error {
	if len(batch) == 0 {
		return nil
	}

	startID := batch[0].ID
	endID := batch[len(batch)-1].ID

	if _, err := m.store.RegenerateRange(ctx, startID, endID); err != nil {
		return errs.Wrap(errs.ErrorTypeCommit, "applying token batch", err)
	}

	return nil
}
