// Package tickets owns the ticket table: schema, cursor-ordered reads,
// bulk seeding, and the transactional token regeneration that both the
// inline mutator and the queue worker commit through.
package tickets
