package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"spool/internal/queue"
	"spool/internal/task"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func enqueueEcho(t *testing.T, store *queue.Store, msg string, priority int) int64 {
	t.Helper()
	oid, err := store.Enqueue(context.Background(), &task.Echo{Msg: msg}, priority)
	if err != nil {
		t.Fatalf("enqueue %q: %v", msg, err)
	}
	return oid
}

func TestClaimFollowsPriorityOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	enqueueEcho(t, store, "later", 20)
	enqueueEcho(t, store, "first", 1)
	enqueueEcho(t, store, "middle", 10)

	want := []string{"first", "middle", "later"}
	for _, expected := range want {
		rec, err := store.Claim(ctx, "worker-a")
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		tk, err := rec.Task()
		if err != nil {
			t.Fatalf("decode claimed payload: %v", err)
		}
		echo, ok := tk.(*task.Echo)
		if !ok {
			t.Fatalf("expected echo task, got %T", tk)
		}
		if echo.Msg != expected {
			t.Fatalf("claim order: got %q, want %q", echo.Msg, expected)
		}
	}
}

func TestClaimBreaksPriorityTiesByInsertionOrder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := enqueueEcho(t, store, "one", queue.DefaultPriority)
	second := enqueueEcho(t, store, "two", queue.DefaultPriority)
	if second <= first {
		t.Fatalf("expected monotonically increasing oids, got %d then %d", first, second)
	}

	rec, err := store.Claim(ctx, "worker-a")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if rec.OID != first {
		t.Fatalf("expected oldest record %d, claimed %d", first, rec.OID)
	}
}

func TestClaimEmptyQueue(t *testing.T) {
	store := openStore(t)

	if _, err := store.Claim(context.Background(), "worker-a"); !errors.Is(err, queue.ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestClaimSetsRunningAndOwner(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	oid := enqueueEcho(t, store, "claimed", queue.DefaultPriority)

	rec, err := store.Claim(ctx, "worker-a")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if rec.OID != oid {
		t.Fatalf("claimed %d, want %d", rec.OID, oid)
	}
	if rec.Status != queue.StatusRunning {
		t.Fatalf("expected running status, got %s", rec.Status)
	}
	if rec.Owner != "worker-a" {
		t.Fatalf("expected owner worker-a, got %q", rec.Owner)
	}

	stored, err := store.GetByID(ctx, oid)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if stored.Status != queue.StatusRunning || stored.Owner != "worker-a" {
		t.Fatalf("claim not persisted: status=%s owner=%q", stored.Status, stored.Owner)
	}

	// A second claimant must not see the running record.
	if _, err := store.Claim(ctx, "worker-b"); !errors.Is(err, queue.ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue for second claim, got %v", err)
	}
}

func TestClaimRequiresOwner(t *testing.T) {
	store := openStore(t)

	if _, err := store.Claim(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank worker identity")
	}
}

func TestConcurrentClaimsNeverShareARecord(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	const total = 16
	for i := 0; i < total; i++ {
		enqueueEcho(t, store, "work", queue.DefaultPriority)
	}

	var (
		mu      sync.Mutex
		claimed = make(map[int64]string)
		wg      sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			for {
				rec, err := store.Claim(ctx, owner)
				if errors.Is(err, queue.ErrEmptyQueue) {
					return
				}
				if err != nil {
					t.Errorf("claim: %v", err)
					return
				}
				mu.Lock()
				if prev, dup := claimed[rec.OID]; dup {
					t.Errorf("record %d claimed by both %s and %s", rec.OID, prev, owner)
				}
				claimed[rec.OID] = owner
				mu.Unlock()
			}
		}("worker-" + string(rune('a'+w)))
	}
	wg.Wait()

	if len(claimed) != total {
		t.Fatalf("claimed %d distinct records, want %d", len(claimed), total)
	}
}

func TestMarkTransitions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	oid := enqueueEcho(t, store, "lifecycle", queue.DefaultPriority)

	if err := store.MarkRunning(ctx, oid, "worker-a"); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	rec, err := store.GetByID(ctx, oid)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != queue.StatusRunning || rec.Owner != "worker-a" {
		t.Fatalf("after running: status=%s owner=%q", rec.Status, rec.Owner)
	}

	if err := store.MarkDone(ctx, oid); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	rec, err = store.GetByID(ctx, oid)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != queue.StatusDone {
		t.Fatalf("after done: status=%s", rec.Status)
	}
	if rec.Owner != "" {
		t.Fatalf("finalizing must clear the owner, got %q", rec.Owner)
	}

	if err := store.MarkFailed(ctx, oid); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.MarkPending(ctx, oid); err != nil {
		t.Fatalf("mark pending: %v", err)
	}
	rec, err = store.GetByID(ctx, oid)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != queue.StatusPending || rec.Owner != "" {
		t.Fatalf("after release: status=%s owner=%q", rec.Status, rec.Owner)
	}
}

func TestMarkMissingRecord(t *testing.T) {
	store := openStore(t)

	if err := store.MarkDone(context.Background(), 4242); !errors.Is(err, queue.ErrNoRecord) {
		t.Fatalf("expected ErrNoRecord, got %v", err)
	}
	if err := store.MarkRunning(context.Background(), 1, ""); err == nil {
		t.Fatal("expected error for blank worker identity")
	}
}

func TestPeekDoesNotDequeue(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	enqueueEcho(t, store, "a", 2)
	enqueueEcho(t, store, "b", 1)
	enqueueEcho(t, store, "c", 3)

	peeked, err := store.Peek(ctx, 2)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if len(peeked) != 2 {
		t.Fatalf("peeked %d records, want 2", len(peeked))
	}
	if peeked[0].Priority != 1 || peeked[1].Priority != 2 {
		t.Fatalf("unexpected peek order: %d then %d", peeked[0].Priority, peeked[1].Priority)
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Pending != 3 {
		t.Fatalf("peek changed state: %d pending, want 3", summary.Pending)
	}

	// n below one is clamped rather than rejected.
	single, err := store.Peek(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(single) != 1 {
		t.Fatalf("peeked %d records, want 1", len(single))
	}
}

func TestFetchFiltersByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	enqueueEcho(t, store, "pending", queue.DefaultPriority)
	done := enqueueEcho(t, store, "done", queue.DefaultPriority)
	failed := enqueueEcho(t, store, "failed", queue.DefaultPriority)
	if err := store.MarkDone(ctx, done); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkFailed(ctx, failed); err != nil {
		t.Fatal(err)
	}

	all, err := store.Fetch(ctx, 0)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("fetched %d records, want 3", len(all))
	}

	finished, err := store.Fetch(ctx, 0, queue.StatusDone, queue.StatusFailed)
	if err != nil {
		t.Fatalf("fetch finished: %v", err)
	}
	if len(finished) != 2 {
		t.Fatalf("fetched %d finished records, want 2", len(finished))
	}

	limited, err := store.Fetch(ctx, 1, queue.StatusDone, queue.StatusFailed)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("fetched %d records with limit 1", len(limited))
	}
}

func TestSummaryCounts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	enqueueEcho(t, store, "p1", queue.DefaultPriority)
	enqueueEcho(t, store, "p2", queue.DefaultPriority)
	done := enqueueEcho(t, store, "d", queue.DefaultPriority)
	failed := enqueueEcho(t, store, "f", queue.DefaultPriority)
	running := enqueueEcho(t, store, "r", queue.DefaultPriority)

	if err := store.MarkDone(ctx, done); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkFailed(ctx, failed); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkRunning(ctx, running, "worker-a"); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := queue.Summary{Pending: 2, Running: 1, Done: 1, Failed: 1, Total: 5}
	if summary != want {
		t.Fatalf("summary %+v, want %+v", summary, want)
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := openStore(t)

	rec, err := store.GetByID(context.Background(), 99)
	if err != nil {
		t.Fatalf("get missing record: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil for missing record, got %+v", rec)
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	store, err := queue.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	oid, err := store.Enqueue(ctx, &task.Echo{Msg: "durable"}, 4)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := queue.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	rec, err := reopened.GetByID(ctx, oid)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if rec == nil {
		t.Fatal("record lost across reopen")
	}
	if rec.Priority != 4 || rec.Status != queue.StatusPending {
		t.Fatalf("record changed across reopen: %+v", rec)
	}
	tk, err := rec.Task()
	if err != nil {
		t.Fatalf("decode payload after reopen: %v", err)
	}
	if echo, ok := tk.(*task.Echo); !ok || echo.Msg != "durable" {
		t.Fatalf("payload changed across reopen: %#v", tk)
	}
}
