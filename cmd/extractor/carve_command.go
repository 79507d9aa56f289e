package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/carve"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/reconstruct"
)

func newCarveCommand(ctx *commandContext) *cobra.Command {
	var outFile string
	var name string

	cmd := &cobra.Command{
		Use:   "carve BLOB",
		Short: "Recover an EPUB from a raw or damaged blob",
		Long: `Scan BLOB for zip local file headers, decompress every entry that can be
recovered, and repack the entries into a new EPUB.

The blob may be a truncated download, a disk image fragment, or an archive
with a missing central directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.newReconstructor("")
			if err != nil {
				return err
			}
			report, err := r.OfflineFile(cmd.Context(), args[0], name, outFile, newProgressPrinter(cmd.ErrOrStderr(), "carve"))
			if err != nil {
				return err
			}
			printOfflineReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Output file (defaults to <output_dir>/<name>.epub)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Book identifier used for the output name (defaults to the blob file name)")
	return cmd
}

func printOfflineReport(cmd *cobra.Command, report *reconstruct.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", report.OutputPath)
	fmt.Fprintf(out, "  Entries: %d\n", report.Entries)
	res := report.Carve
	if res == nil {
		return
	}
	fmt.Fprintf(out, "  Matches: %d, recovered %d\n", res.Matches, res.Recovered)
	reasons := make([]carve.DiscardReason, 0, len(res.Discarded))
	for reason := range res.Discarded {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		fmt.Fprintf(out, "  Discarded (%s): %d\n", reason, res.Discarded[reason])
	}
	if res.MimeType() == nil {
		fmt.Fprintln(out, "  No mimetype entry recovered; wrote application/epub+zip")
	}
}
