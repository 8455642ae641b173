// Package repositories implements SQLite persistence for the local training run history.
//
// [RunRepository] handles CRUD operations with atomic sequence generation for human-readable ordering.
// Runs are soft deleted via a deleted_at timestamp and excluded from queries by default.
//
// [RunHistory] adapts the repository to the recorder the trainer and the TUI call as a run progresses.
//
// Sequence numbers provide stable ordering (run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
