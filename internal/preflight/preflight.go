package preflight

import (
	"context"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/config"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fetch"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/manifest"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for the given config. When src is
// non-nil its package document is also fetched through f.
func RunAll(ctx context.Context, cfg *config.Config, f fetch.Fetcher, src *manifest.Source) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, MinFreeBytes))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	// Output is created on demand, so it is only checked once it exists.
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}

	if src != nil && f != nil {
		results = append(results, CheckSource(ctx, f, *src))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
