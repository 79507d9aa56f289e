package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage staging areas",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staging areas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stagingDir := cfg.Paths.StagingDir

			dirs, err := staging.ListDirectories(stagingDir)
			if err != nil {
				return fmt.Errorf("list staging directories: %w", err)
			}

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if jsonOutput {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, map[string]any{
					"staging_dir":      stagingDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging areas found")
				return nil
			}

			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				state := "idle"
				if dir.InUse {
					state = "in use"
				}
				rows = append(rows, []string{
					shortID(dir.Name),
					humanize.Time(dir.ModTime),
					humanize.IBytes(uint64(dir.Size)),
					state,
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Area", "Modified", "Size", "State"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "\nTotal: %d areas, %s\n", len(dirs), humanize.IBytes(uint64(totalSize)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove abandoned staging areas",
		Long: `Remove staging areas left behind by interrupted or failed runs.

By default only areas older than staging.stale_hours are removed. Use --all
to remove every area regardless of age. Areas locked by a running
reconstruction are never removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			maxAge := cfg.StaleAge()
			label := "stale"
			if cleanAll {
				maxAge = 0
				label = "idle"
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, logger)
			if jsonOutput {
				return writeStagingCleanJSON(cmd, result)
			}
			return printStagingCleanResult(cmd, result, label)
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all idle staging areas regardless of age")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// printStagingCleanResult summarises a cleanup. Removal errors are listed
// one per line after the counts.
func printStagingCleanResult(cmd *cobra.Command, result staging.CleanStaleResult, label string) error {
	out := cmd.OutOrStdout()
	switch {
	case len(result.Removed) == 0 && len(result.Errors) == 0:
		fmt.Fprintf(out, "No %s staging areas to clean\n", label)
	default:
		fmt.Fprintf(out, "Removed %d %s staging areas", len(result.Removed), label)
		if n := len(result.Errors); n > 0 {
			fmt.Fprintf(out, ", %d errors", n)
		}
		fmt.Fprintln(out)
	}
	if n := len(result.Skipped); n > 0 {
		fmt.Fprintf(out, "Skipped %d areas held by a running reconstruction\n", n)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %s: %v\n", e.Path, e.Error)
	}
	return nil
}

func writeStagingCleanJSON(cmd *cobra.Command, result staging.CleanStaleResult) error {
	type failure struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}
	failures := make([]failure, 0, len(result.Errors))
	for _, e := range result.Errors {
		failures = append(failures, failure{Path: e.Path, Error: e.Error.Error()})
	}
	removed := result.Removed
	if removed == nil {
		removed = []string{}
	}
	return writeJSON(cmd, map[string]any{
		"removed": removed,
		"skipped": len(result.Skipped),
		"errors":  failures,
	})
}
