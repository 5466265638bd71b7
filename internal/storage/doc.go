// Package storage persists the two shared mutable resources of a run:
//
//   - Dispatch history (capped, append-only)
//   - The failed-post queue (replayed by the retry sweep)
//
// Backends: JSON files (default), in-memory, SQLite (build tag "sqlite").
package storage
