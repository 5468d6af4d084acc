package queue

import "errors"

var (
	// ErrEmptyQueue is returned by Claim when no pending record exists.
	ErrEmptyQueue = errors.New("queue is empty")
	// ErrAlreadyClaimed indicates a record owned by another worker.
	// Claim is atomic, so surfacing this is a programming error rather
	// than a recoverable race.
	ErrAlreadyClaimed = errors.New("record is claimed by another worker")
	// ErrNoRecord indicates a status transition addressed a row identity
	// the store has never assigned.
	ErrNoRecord = errors.New("no such task record")
	// ErrUnavailable wraps I/O failures of the underlying database.
	ErrUnavailable = errors.New("queue store unavailable")
)
