package testsupport

import (
	"context"
	"testing"

	"spool/internal/config"
	"spool/internal/queue"
	"spool/internal/task"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue appends a task for tests, failing on error.
func MustEnqueue(t testing.TB, store *queue.Store, tk task.Task, priority int) int64 {
	t.Helper()

	oid, err := store.Enqueue(context.Background(), tk, priority)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return oid
}
