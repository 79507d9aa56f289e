package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/manifest"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var sourcePath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, free space, and optionally a remote source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var src *manifest.Source
			if path := strings.TrimSpace(sourcePath); path != "" {
				loaded, err := manifest.LoadSource(path)
				if err != nil {
					return err
				}
				src = &loaded
			}

			results := preflight.RunAll(cmd.Context(), cfg, ctx.newFetcher(cfg), src)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourcePath, "source", "s", "", "Also probe the package document of this source")
	return cmd
}
