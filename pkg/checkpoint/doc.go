// Package checkpoint provides durable stores for batch run resume state.
//
// Two backends implement engine.CheckpointStore: a local file store with
// atomic writes, and a Redis store for runs that are not pinned to one
// host. Both treat a missing or corrupt stored value as "no checkpoint" so
// a damaged file or key costs progress, never the run itself. Neither
// backend locks the run name; concurrent runners sharing a name produce
// undefined interleaving.
package checkpoint
