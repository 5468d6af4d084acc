package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"spool/internal/config"
	"spool/internal/task"
)

// DefaultPriority is assigned when the caller does not choose one. Lower
// values dequeue first.
const DefaultPriority = 10

// Store manages task persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the queue database at an explicit location and applies the
// schema. Re-opening an initialized database is a no-op.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %s", ErrUnavailable, dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %s", ErrUnavailable, pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the queue database.
func (s *Store) Path() string {
	return s.path
}

// Enqueue appends a pending record for the task at the given priority and
// returns the assigned row identity. The record is durable before return.
func (s *Store) Enqueue(ctx context.Context, t task.Task, priority int) (int64, error) {
	payload, err := task.Marshal(t)
	if err != nil {
		return 0, fmt.Errorf("marshal task: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO tasks (priority, payload, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		priority,
		string(payload),
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue task: %w", err)
	}

	oid, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return oid, nil
}

// Claim atomically transitions the single best pending record to running
// with the caller as owner and returns it. Candidates order by ascending
// priority, ties by ascending row identity, so equal priorities dequeue in
// insertion order. Select and update happen in one statement: two
// concurrent claimants can never receive the same record.
func (s *Store) Claim(ctx context.Context, owner string) (*Record, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, errors.New("claim requires a worker identity")
	}

	const claimSQL = `
        UPDATE tasks
        SET status = ?, owner = ?, updated_at = ?
        WHERE oid = (
            SELECT oid FROM tasks WHERE status = ? ORDER BY priority, oid LIMIT 1
        )
        RETURNING ` + recordColumns

	var rec *Record
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			claimSQL,
			StatusRunning,
			owner,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusPending,
		)
		var scanErr error
		rec, scanErr = scanRecord(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmptyQueue
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}

	// Unreachable when claiming works as specified; kept as an assertion.
	if rec.Owner != owner {
		return nil, fmt.Errorf("%w: task %d held by %q", ErrAlreadyClaimed, rec.OID, rec.Owner)
	}
	return rec, nil
}

// Peek returns the next n claim candidates in dequeue order without
// changing any state. n below 1 is treated as 1.
func (s *Store) Peek(ctx context.Context, n int) ([]*Record, error) {
	if n < 1 {
		n = 1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordColumns+` FROM tasks WHERE status = ? ORDER BY priority, oid LIMIT ?`,
		StatusPending,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("peek queue: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Fetch returns up to limit records filtered by the given statuses, in
// dequeue order. No statuses means no filter; limit below 1 means no limit.
func (s *Store) Fetch(ctx context.Context, limit int, statuses ...Status) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM tasks`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY priority, oid`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// GetByID fetches a record by row identity. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, oid int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM tasks WHERE oid = ?`, oid)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Stats returns a count of records grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Summary aggregates queue counts per lifecycle state.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{}
	for status, count := range stats {
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending += count
		case StatusRunning:
			summary.Running += count
		case StatusDone:
			summary.Done += count
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, nil
}

// MarkPending releases a record back to the pending state and clears its
// owner. Used for explicit release, never automatic retry.
func (s *Store) MarkPending(ctx context.Context, oid int64) error {
	return s.markStatus(ctx, oid, StatusPending, nil)
}

// MarkRunning transitions a record to running under the given owner. It is
// the only transition that sets the owner column.
func (s *Store) MarkRunning(ctx context.Context, oid int64, owner string) error {
	if strings.TrimSpace(owner) == "" {
		return errors.New("mark running requires a worker identity")
	}
	return s.markStatus(ctx, oid, StatusRunning, owner)
}

// MarkDone finalizes a record as successfully executed and clears its owner.
func (s *Store) MarkDone(ctx context.Context, oid int64) error {
	return s.markStatus(ctx, oid, StatusDone, nil)
}

// MarkFailed finalizes a record as failed and clears its owner. The record
// is retained for inspection and explicit re-submission.
func (s *Store) MarkFailed(ctx context.Context, oid int64) error {
	return s.markStatus(ctx, oid, StatusFailed, nil)
}

func (s *Store) markStatus(ctx context.Context, oid int64, status Status, owner any) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks SET status = ?, owner = ?, updated_at = ? WHERE oid = ?`,
		status,
		owner,
		time.Now().UTC().Format(time.RFC3339Nano),
		oid,
	)
	if err != nil {
		return fmt.Errorf("mark %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark %s: task %d: %w", status, oid, ErrNoRecord)
	}
	return nil
}
