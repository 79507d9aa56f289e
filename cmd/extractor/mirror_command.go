package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/manifest"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/reconstruct"
)

func newMirrorCommand(ctx *commandContext) *cobra.Command {
	var sourcePath string
	var outDir string
	var outFile string

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Rebuild an EPUB by mirroring its remote assets",
		Long: `Download every asset a remote package document lists, add the cover,
and package the result as an EPUB.

The source is a JSON file naming the base URL and package document path:

  {"title": "...", "source_base_url": "https://...", "package_document_path": "OEBPS/content.opf"}

Assets that fail to download are reported and left out; the book is still
packaged and the run is recorded as partial.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(sourcePath) == "" {
				return errors.New("--source is required")
			}
			src, err := manifest.LoadSource(sourcePath)
			if err != nil {
				return err
			}
			r, err := ctx.newReconstructor(outDir)
			if err != nil {
				return err
			}

			report, err := r.Online(cmd.Context(), src, outFile, newProgressPrinter(cmd.ErrOrStderr(), "mirror"))
			if err != nil {
				return err
			}
			printOnlineReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourcePath, "source", "s", "", "JSON file describing the remote book")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (defaults to paths.output_dir)")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Exact output file path")
	return cmd
}

func printOnlineReport(cmd *cobra.Command, report *reconstruct.Report) {
	out := cmd.OutOrStdout()
	mr := report.Mirror
	fmt.Fprintf(out, "Wrote %s\n", report.OutputPath)
	fmt.Fprintf(out, "  Title:   %s\n", report.Title)
	fmt.Fprintf(out, "  Entries: %d\n", report.Entries)
	fmt.Fprintf(out, "  Assets:  %d fetched, %d reused, %d failed (%s)\n",
		mr.Fetched, mr.Skipped, len(mr.Failures), humanize.IBytes(uint64(mr.Bytes)))
	for _, f := range mr.Failures {
		fmt.Fprintf(out, "  Missing: %s: %v\n", f.Href, f.Err)
	}
	for _, res := range report.Resources {
		if res.Err != nil {
			fmt.Fprintf(out, "  Resource %s failed: %v\n", res.Name, res.Err)
			continue
		}
		fmt.Fprintf(out, "  Resource %s: %s\n", res.Name, res.Path)
	}
}
