// Package repositories implements SQLite persistence for lookup history.
//
// [LookupRepository] handles CRUD operations with atomic sequence generation for
// human-readable ordering. Deletes are soft (deleted_at) and deleted rows are excluded
// from queries.
//
// Sequence numbers give each lookup a short, stable handle (lookup #42) that the history
// command prints and accepts. The [NextSequence] function atomically increments per-table
// counters kept in dedicated sequence tables.
package repositories
