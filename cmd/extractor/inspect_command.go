package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/carve"
)

type inspectRow struct {
	Offset       int    `json:"offset"`
	Name         string `json:"name,omitempty"`
	Method       uint16 `json:"method"`
	PayloadBytes int    `json:"payload_bytes"`
	Bytes        int    `json:"bytes"`
	Outcome      string `json:"outcome"`
	NameDecoded  bool   `json:"name_cp437,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var recoveredOnly bool

	cmd := &cobra.Command{
		Use:   "inspect BLOB",
		Short: "List the zip entries a blob would yield, without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read blob: %w", err)
			}

			rows := make([]inspectRow, 0)
			recovered := 0
			scanner := carve.NewScanner(blob, cfg.MaxEntryBytes())
			for scanner.Scan() {
				c := scanner.Candidate()
				if c.Recovered() {
					recovered++
				} else if recoveredOnly {
					continue
				}
				row := inspectRow{
					Offset:  c.Offset,
					Name:    c.Header.Name,
					Method:  c.Header.Method,
					Outcome: c.Reason.String(),
				}
				if c.Header.DescriptorOffset > 0 {
					row.PayloadBytes = c.Header.PayloadLen()
				}
				if c.Recovered() {
					row.Name = c.Entry.Name
					row.Bytes = len(c.Entry.Data)
					row.NameDecoded = c.Entry.DecodeFailed
				}
				rows = append(rows, row)
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"blob":       args[0],
					"size_bytes": len(blob),
					"matches":    scanner.Matches(),
					"recovered":  recovered,
					"candidates": rows,
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No candidates in %s (%s)\n", args[0], humanize.IBytes(uint64(len(blob))))
				return nil
			}
			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				name := row.Name
				if row.NameDecoded {
					name += " (cp437)"
				}
				tableRows = append(tableRows, []string{
					fmt.Sprintf("0x%08x", row.Offset),
					name,
					methodLabel(row.Method),
					humanize.IBytes(uint64(row.PayloadBytes)),
					humanize.IBytes(uint64(row.Bytes)),
					row.Outcome,
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Offset", "Name", "Method", "Stored", "Size", "Outcome"},
				tableRows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "\n%d matches, %d recoverable\n", scanner.Matches(), recovered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&recoveredOnly, "recovered", false, "Only list candidates that decode to an entry")
	return cmd
}

func methodLabel(method uint16) string {
	switch method {
	case carve.MethodStore:
		return "store"
	case carve.MethodDeflate:
		return "deflate"
	default:
		return strconv.Itoa(int(method))
	}
}
