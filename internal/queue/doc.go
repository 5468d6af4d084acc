// Package queue persists spool tasks in a durable, priority-ordered SQLite
// store with exclusive claim semantics. The store, not any in-memory task,
// is authoritative: every mutating operation commits before it returns, and
// records are never deleted, so the table doubles as an append-only history
// of all work the queue has ever seen.
package queue
