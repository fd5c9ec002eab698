// Package store provides SQLite-backed storage for compiled programs and
// analysis runs.
//
// Programs are keyed by their IR hash, so saving the same program twice is
// a no-op. Runs reference a stored program and record one analysis: its
// kind, its parameters and its result, each as canonical JSON.
//
// # Ordering
//
// Runs carry a store-assigned seq. Queries order by seq ASC, id ASC
// COLLATE BINARY and never by wall-clock time, so listings are stable
// across clock skew and identical test runs.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait on lock contention
//   - foreign_keys=ON: runs must reference a stored program
package store
