// Package store provides the SQLite-backed submission history.
//
// Every submission the engine runs is journaled as one row: session, logical
// sequence number, content hash, the code itself, the references and
// namespaces it caused to be applied, and its outcome. The table is
// append-only; rows are never updated.
//
// # Ordering
//
// Rows are ordered by (session_id, seq), never by wall-clock time. Session
// IDs are UUIDv7, so sorting by session_id also sorts sessions by creation.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - Single connection: one writer at a time
package store
