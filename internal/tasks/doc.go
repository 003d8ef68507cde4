// Package tasks runs multi-input operations on top of the Spotify client with progress reporting.
//
// # Batch Lookups
//
// [Engine.Batch] resolves a list of inputs (links, URIs or free text) concurrently:
//
//   - At most [BatchOpts.Workers] lookups are in flight (errgroup with a limit)
//   - Lookup starts are paced by a token bucket when [BatchOpts.RateLimit] is set
//   - Results are returned in input order regardless of completion order
//   - A failed lookup is reported on its [BatchItem] and never aborts the batch
//   - With [BatchOpts.OutputDir], each result is rendered to a file and a manifest.json
//     summarizing the batch is written alongside
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # History
//
// The optional [HistoryRecorder] interface (repositories.LookupRepository) stores each successful lookup.
// Recording happens after the lookups complete so sequence numbers follow input order.
package tasks
