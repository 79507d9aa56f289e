package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/history"
)

var errHistoryDisabled = errors.New("history ledger is disabled or unavailable")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show past reconstructions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.openLedger()
			if store == nil {
				return errHistoryDisabled
			}
			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(cmd, runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No reconstructions recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				title := run.Title
				if title == "" {
					title = run.Source
				}
				rows = append(rows, []string{
					shortID(run.JobID),
					humanize.Time(run.StartedAt),
					run.Strategy,
					string(run.Status),
					fmt.Sprintf("%d/%d", run.RecoveredItems, run.TotalItems),
					formatRunDuration(run.Duration()),
					title,
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Job", "Started", "Strategy", "Status", "Items", "Took", "Title"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show one reconstruction as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := ctx.openLedger()
			if store == nil {
				return errHistoryDisabled
			}
			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, run)
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store := ctx.openLedger()
			if store == nil {
				return errHistoryDisabled
			}
			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatRunDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
