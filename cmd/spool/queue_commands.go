package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"spool/internal/config"
	"spool/internal/queue"
)

var titleCaser = cases.Title(language.Und)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts per state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				summary, err := store.Summary(cmd.Context())
				if err != nil {
					return err
				}
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(queue.AllStatuses())+1)
				for _, status := range queue.AllStatuses() {
					rows = append(rows, []string{
						titleCaser.String(status.String()),
						strconv.Itoa(stats[status]),
					})
				}
				rows = append(rows, []string{"Total", strconv.Itoa(summary.Total)})

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"State", "Tasks"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintf(out, "Database: %s\n", store.Path())
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued tasks in dequeue order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(statusFilters))
			for _, raw := range statusFilters {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (known: pending, running, done, failed)", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				records, err := store.Fetch(cmd.Context(), limit, statuses...)
				if err != nil {
					return err
				}
				printRecords(cmd, records)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFilters, "status", "s", nil, "Filter by state (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum records to show (0 for all)")
	return cmd
}

func newPeekCommand(ctx *commandContext) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Show the next tasks to run without claiming them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				records, err := store.Peek(cmd.Context(), count)
				if err != nil {
					return err
				}
				printRecords(cmd, records)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of upcoming tasks to show")
	return cmd
}

func printRecords(cmd *cobra.Command, records []*queue.Record) {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "Queue is empty.")
		return
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		kind := "?"
		describe := "(undecodable payload)"
		if tk, err := rec.Task(); err == nil {
			kind = titleCaser.String(tk.Kind().String())
			describe = tk.Describe()
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.OID, 10),
			kind,
			describe,
			strconv.Itoa(rec.Priority),
			rec.Status.String(),
			rec.Owner,
			formatTimestamp(rec.UpdatedAt),
		})
	}

	fmt.Fprintln(out, renderTable(out,
		[]string{"ID", "Kind", "Task", "Priority", "State", "Owner", "Updated"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	))
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
