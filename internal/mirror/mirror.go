// Package mirror copies every asset of a manifest model into a staging area
// through a bounded pool of concurrent fetches.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fetch"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fileutil"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/logging"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/manifest"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/progress"
)

// DefaultWorkers bounds concurrent fetches when Options.Workers is unset.
const DefaultWorkers = 10

// Destination maps container paths to local files.
type Destination interface {
	Resolve(containerPath string) (string, error)
}

// Options configures a Mirror.
type Options struct {
	Workers  int
	Progress *progress.Reporter
	Range    progress.Range
	Logger   *slog.Logger
}

// Failure records one asset that could not be mirrored.
type Failure struct {
	Href string
	URL  string
	Err  error
}

// Result summarises a mirror run.
type Result struct {
	Total    int
	Fetched  int
	Skipped  int
	Bytes    int64
	Failures []Failure
}

// Err returns a *PartialMirrorFailure when any asset failed, nil otherwise.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &PartialMirrorFailure{Total: r.Total, Failures: r.Failures}
}

// PartialMirrorFailure reports the assets missing from a completed mirror run.
type PartialMirrorFailure struct {
	Total    int
	Failures []Failure
}

func (e *PartialMirrorFailure) Error() string {
	hrefs := make([]string, 0, min(len(e.Failures), 5))
	for i, f := range e.Failures {
		if i == 5 {
			hrefs = append(hrefs, "...")
			break
		}
		hrefs = append(hrefs, f.Href)
	}
	return fmt.Sprintf("%d of %d assets not mirrored: %s", len(e.Failures), e.Total, strings.Join(hrefs, ", "))
}

// Mirror fetches manifest assets into a Destination.
type Mirror struct {
	fetcher fetch.Fetcher
	workers int
	report  *progress.Reporter
	rng     progress.Range
	logger  *slog.Logger
}

// New creates a Mirror that fetches through f.
func New(f fetch.Fetcher, opts Options) *Mirror {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	rng := opts.Range
	if rng == (progress.Range{}) {
		rng = progress.Range{From: 0, To: 100}
	}
	return &Mirror{
		fetcher: f,
		workers: workers,
		report:  opts.Progress,
		rng:     rng,
		logger:  logging.NewComponentLogger(opts.Logger, "mirror"),
	}
}

// Run attempts every distinct staging path of model exactly once; hrefs that
// alias an earlier asset are not fetched again. Individual failures never
// stop sibling fetches; they are collected in Result.Failures. Assets already
// present with non-zero size are counted as complete without fetching. When
// ctx is cancelled no new fetches start and ctx.Err() is returned.
func (m *Mirror) Run(ctx context.Context, model manifest.Model, dst Destination) (Result, error) {
	logger := logging.WithContext(ctx, m.logger)
	assets := distinctAssets(model)
	result := Result{Total: len(assets)}
	if result.Total == 0 {
		m.report.Step(m.rng, 0, 0)
		return result, nil
	}

	var (
		mu        sync.Mutex
		completed atomic.Int64
		fetched   atomic.Int64
		skipped   atomic.Int64
		bytes     atomic.Int64
	)
	fail := func(f Failure) {
		mu.Lock()
		result.Failures = append(result.Failures, f)
		mu.Unlock()
		logging.WarnWithContext(logger, "asset not mirrored", "asset_fetch_failed",
			logging.String("href", f.Href),
			logging.String("url", f.URL),
			logging.Error(f.Err),
			logging.String(logging.FieldErrorHint, "check the source URL and credentials"),
			logging.String(logging.FieldImpact, "asset will be missing from the book"),
		)
	}
	done := func() {
		n := completed.Add(1)
		m.report.Step(m.rng, int(n), result.Total)
	}

	var g errgroup.Group
	g.SetLimit(m.workers)
	for _, asset := range assets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer done()
			if ctx.Err() != nil {
				return nil
			}
			url := asset.URL(model)
			target, err := dst.Resolve(asset.StagingPath(model))
			if err != nil {
				fail(Failure{Href: asset.Href, URL: url, Err: err})
				return nil
			}
			if fileutil.NonEmptyFile(target) {
				skipped.Add(1)
				return nil
			}
			n, err := m.fetchTo(ctx, url, target)
			if err != nil {
				if ctx.Err() == nil {
					fail(Failure{Href: asset.Href, URL: url, Err: err})
				}
				return nil
			}
			fetched.Add(1)
			bytes.Add(n)
			logger.Debug("asset mirrored", logging.String("href", asset.Href), logging.Int64("bytes", n))
			return nil
		})
	}
	_ = g.Wait()

	result.Fetched = int(fetched.Load())
	result.Skipped = int(skipped.Load())
	result.Bytes = bytes.Load()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	logger.Info("mirror complete",
		logging.Int("assets", result.Total),
		logging.Int("fetched", result.Fetched),
		logging.Int("resumed", result.Skipped),
		logging.Int("failed", len(result.Failures)),
		logging.Int64("bytes", result.Bytes),
		logging.String(logging.FieldEventType, "mirror_complete"),
	)
	return result, nil
}

// distinctAssets drops assets whose staging path repeats an earlier one.
func distinctAssets(model manifest.Model) []manifest.AssetReference {
	seen := make(map[string]struct{}, len(model.Assets))
	out := make([]manifest.AssetReference, 0, len(model.Assets))
	for _, asset := range model.Assets {
		target := asset.StagingPath(model)
		if target != "" {
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
		}
		out = append(out, asset)
	}
	return out
}

func (m *Mirror) fetchTo(ctx context.Context, url, target string) (int64, error) {
	resp, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := fileutil.WriteAtomic(target, resp.Body)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", target, err)
	}
	return n, nil
}
