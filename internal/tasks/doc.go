// Package tasks orchestrates the playlist pipeline with real-time progress reporting.
//
// # Core Operations
//
// [PlaylistEngine] runs the stages of a sort request in order:
//
//  1. Read : declared item count, then every item page with one batched video lookup per page
//     - [Aggregate] merges pages into [models.EnrichedItem] values in page order
//     - a merged length different from the declared count is a completeness fault
//
//  2. Sort : [SortItems] orders a copy of the items by title, date or channel
//     - stable in both directions; descending negates the ascending comparator
//     - duration is recognized but rejected before any remote call
//
//  3. Materialize : [Materializer] creates a private playlist and inserts the sorted ids one by one
//     - transient insert failures are retried with exponential backoff
//     - nothing is rolled back; a failure reports the new playlist id and the last inserted index
//     - [PlaylistEngine.Resume] continues a recorded job after its last successful insert
//
// [PlaylistEngine.BulkExport] sorts many playlists with a worker pool and writes them with the formatter package.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Job Checkpoints
//
// The optional [JobStore] records every materialize transition (repositories.JobRepository).
// Checkpoint persistence errors are logged and never fail the run.
package tasks
