package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/logging"
	"spool/internal/queue"
	"spool/internal/worker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var once bool
	var drain bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Claim and execute queued tasks",
		Long: "Claim and execute queued tasks sequentially. By default the worker " +
			"polls for new work until interrupted or a kill task is reached. " +
			"--drain exits once the queue is empty, --once executes a single task.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if once && drain {
				return errors.New("--once and --drain are mutually exclusive")
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				lock := flock.New(cfg.LockPath())
				acquired, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire worker lock: %w", err)
				}
				if !acquired {
					return fmt.Errorf("another spool worker holds %s", cfg.LockPath())
				}
				defer lock.Unlock()

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}

				runner := worker.New(store,
					worker.WithLogger(logger),
					worker.WithPollInterval(cfg.PollInterval()),
				)

				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				switch {
				case once:
					_, err := runner.RunOne(runCtx)
					if errors.Is(err, queue.ErrEmptyQueue) {
						fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
						return nil
					}
					if errors.Is(err, worker.ErrStop) {
						return nil
					}
					return err
				case drain:
					processed, err := runner.Drain(runCtx)
					if err != nil && !errors.Is(err, worker.ErrStop) {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Processed %d task(s).\n", processed)
					return nil
				default:
					return runner.Run(runCtx)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Execute a single task and exit")
	cmd.Flags().BoolVar(&drain, "drain", false, "Exit when the queue is empty")
	return cmd
}
