package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/config"
	"spool/internal/convert"
	"spool/internal/queue"
	"spool/internal/task"
)

// priorityUnset marks the --priority flag as untouched so the configured
// default can be applied. Real priorities are never negative.
const priorityUnset = -1

func newAddCommand(ctx *commandContext) *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Enqueue a task",
	}

	var priority int
	var noValidate bool
	addCmd.PersistentFlags().IntVarP(&priority, "priority", "p", priorityUnset, "Task priority (lower dequeues first; defaults to the configured value)")
	addCmd.PersistentFlags().BoolVar(&noValidate, "no-validate", false, "Skip filesystem precondition checks at enqueue time")

	enqueue := func(cmd *cobra.Command, tk task.Task) error {
		return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
			effective := priority
			if effective == priorityUnset {
				effective = cfg.Worker.DefaultPriority
			}
			oid, err := store.Enqueue(cmd.Context(), tk, effective)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued task #%d (%s) at priority %d\n", oid, tk.Describe(), effective)
			return nil
		})
	}

	addCmd.AddCommand(&cobra.Command{
		Use:   "echo <message>",
		Short: "Enqueue a task that prints a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return enqueue(cmd, &task.Echo{Msg: strings.Join(args, " ")})
		},
	})

	addCmd.AddCommand(&cobra.Command{
		Use:   "delete <path>",
		Short: "Enqueue a file deletion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := absPath(args[0])
			if err != nil {
				return err
			}
			tk, err := task.NewDelete(src, !noValidate)
			if err != nil {
				return err
			}
			return enqueue(cmd, tk)
		},
	})

	addCmd.AddCommand(&cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "Enqueue a file or directory copy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst, err := absPair(args[0], args[1])
			if err != nil {
				return err
			}
			tk, err := task.NewCopy(src, dst, !noValidate)
			if err != nil {
				return err
			}
			return enqueue(cmd, tk)
		},
	})

	addCmd.AddCommand(&cobra.Command{
		Use:   "move <src> <dst>",
		Short: "Enqueue a file or directory move",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst, err := absPair(args[0], args[1])
			if err != nil {
				return err
			}
			tk, err := task.NewMove(src, dst, !noValidate)
			if err != nil {
				return err
			}
			return enqueue(cmd, tk)
		},
	})

	var converterName string
	var converterOpts []string
	convertCmd := &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Enqueue a file conversion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst, err := absPair(args[0], args[1])
			if err != nil {
				return err
			}
			options, err := parseOptions(converterOpts)
			if err != nil {
				return err
			}
			conv, err := convert.New(converterName, options)
			if err != nil {
				return fmt.Errorf("%w (known: %s)", err, strings.Join(convert.Registered(), ", "))
			}
			tk, err := task.NewConvert(src, dst, conv, !noValidate)
			if err != nil {
				return err
			}
			return enqueue(cmd, tk)
		},
	}
	convertCmd.Flags().StringVar(&converterName, "converter", "copy", "Registered converter to apply")
	convertCmd.Flags().StringArrayVar(&converterOpts, "opt", nil, "Converter option as key=value (repeatable)")
	addCmd.AddCommand(convertCmd)

	addCmd.AddCommand(&cobra.Command{
		Use:   "kill",
		Short: "Enqueue a marker that stops the worker when reached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return enqueue(cmd, &task.Kill{})
		},
	})

	return addCmd
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return abs, nil
}

func absPair(src, dst string) (string, string, error) {
	absSrc, err := absPath(src)
	if err != nil {
		return "", "", err
	}
	absDst, err := absPath(dst)
	if err != nil {
		return "", "", err
	}
	return absSrc, absDst, nil
}

func parseOptions(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid converter option %q, want key=value", pair)
		}
		options[strings.TrimSpace(key)] = value
	}
	return options, nil
}
