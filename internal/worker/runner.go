// Package worker claims queued tasks one at a time and drives them through
// execution and finalization. A single runner processes tasks sequentially;
// scaling out means running more workers against the same database.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/task"
)

// ErrStop reports that a kill task was claimed and the worker should exit
// its processing loop.
var ErrStop = errors.New("worker: stop requested")

// Runner executes queued tasks in claim order.
type Runner struct {
	store  *queue.Store
	logger *slog.Logger
	id     string
	poll   time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithIdentity overrides the generated worker identity.
func WithIdentity(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.id = id
		}
	}
}

// WithPollInterval sets the idle sleep between queue polls.
func WithPollInterval(interval time.Duration) Option {
	return func(r *Runner) {
		if interval > 0 {
			r.poll = interval
		}
	}
}

// New constructs a Runner bound to the given store.
func New(store *queue.Store, opts ...Option) *Runner {
	r := &Runner{
		store:  store,
		logger: logging.NewNop(),
		id:     Identity(),
		poll:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.WithComponent(r.logger, "worker")
	return r
}

// ID returns the worker identity recorded on claimed records.
func (r *Runner) ID() string {
	return r.id
}

// RunOne claims and executes the single best pending task. It returns the
// finalized record, queue.ErrEmptyQueue when nothing is pending, or ErrStop
// when the claimed task is a kill marker. Task failures mark the record
// failed and are reported alongside it; the record is never re-queued.
func (r *Runner) RunOne(ctx context.Context) (*queue.Record, error) {
	rec, err := r.store.Claim(ctx, r.id)
	if err != nil {
		return nil, err
	}

	tk, err := rec.Task()
	if err != nil {
		r.logger.Error("task payload is undecodable",
			logging.Int64("oid", rec.OID),
			logging.Error(err),
		)
		if markErr := r.store.MarkFailed(ctx, rec.OID); markErr != nil {
			return rec, fmt.Errorf("mark undecodable task failed: %w", markErr)
		}
		return rec, fmt.Errorf("decode task %d: %w", rec.OID, err)
	}

	if tk.Kind() == task.KindKill {
		if err := r.store.MarkDone(ctx, rec.OID); err != nil {
			return rec, fmt.Errorf("finalize kill task: %w", err)
		}
		r.logger.Info("kill task claimed, stopping", logging.Int64("oid", rec.OID))
		return rec, ErrStop
	}

	r.logger.Info("task started",
		logging.Int64("oid", rec.OID),
		logging.String("kind", tk.Kind().String()),
		logging.String("task", tk.Describe()),
	)

	if runErr := tk.Run(ctx); runErr != nil {
		r.logger.Error("task failed",
			logging.Int64("oid", rec.OID),
			logging.String("kind", tk.Kind().String()),
			logging.Error(runErr),
		)
		if markErr := r.store.MarkFailed(ctx, rec.OID); markErr != nil {
			return rec, fmt.Errorf("mark task failed: %w", markErr)
		}
		return rec, fmt.Errorf("run task %d: %w", rec.OID, runErr)
	}

	if err := r.store.MarkDone(ctx, rec.OID); err != nil {
		return rec, fmt.Errorf("mark task done: %w", err)
	}
	r.logger.Info("task finished", logging.Int64("oid", rec.OID))
	return rec, nil
}

// Drain processes pending tasks until the queue is empty or a kill task is
// claimed. Individual task failures do not stop the drain. It returns the
// number of records finalized and ErrStop when a kill marker ended the run.
func (r *Runner) Drain(ctx context.Context) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		rec, err := r.RunOne(ctx)
		switch {
		case errors.Is(err, queue.ErrEmptyQueue):
			return processed, nil
		case errors.Is(err, ErrStop):
			processed++
			return processed, ErrStop
		case err != nil && rec == nil:
			// Claim itself failed; the store is unhealthy.
			return processed, err
		default:
			// Failed tasks are finalized too; keep going.
			processed++
		}
	}
}

// Run drains the queue, then polls for new work until the context is
// canceled or a kill task is claimed.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("worker started",
		logging.String("id", r.id),
		logging.Duration("poll_interval", r.poll),
	)

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		if _, err := r.Drain(ctx); err != nil {
			if errors.Is(err, ErrStop) {
				r.logger.Info("worker stopped by kill task")
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.logger.Error("drain failed", logging.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
