package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/progress"
)

// newProgressPrinter returns a progress callback that redraws a single
// status line on w. It returns nil when stderr is not a terminal, leaving
// progress to the sampled log lines.
func newProgressPrinter(w io.Writer, label string) progress.Func {
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil
	}
	return func(percent int) {
		fmt.Fprintf(w, "\r\033[K%s %3d%%", label, percent)
		if percent >= 100 {
			fmt.Fprintln(w)
		}
	}
}
