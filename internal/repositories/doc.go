// Package repositories implements SQLite persistence for materialize jobs.
//
// [JobRepository] records every checkpoint of a materialize run (state, target playlist, last inserted index)
// so a run that failed part-way can be listed and resumed. Deletes are soft via deleted_at timestamps and
// deleted records are excluded from queries.
//
// Sequence numbers provide stable, human-readable ordering (job #7) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
