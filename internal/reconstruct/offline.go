package reconstruct

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/carve"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/history"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/logging"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/progress"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/textutil"
)

// Offline progress milestones.
const (
	offlineRead    = 10
	offlineScanned = 80
	offlineRepack  = 85
)

// OfflineFile reads the blob at blobPath and carves it. An empty id uses the
// file name without its extension.
func (r *Reconstructor) OfflineFile(ctx context.Context, blobPath, id, out string, fn progress.Func) (*Report, error) {
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(blobPath), filepath.Ext(blobPath))
	}
	j := r.begin(ctx, StrategyOffline, blobPath, fn)
	report := &Report{JobID: j.jobID, Strategy: StrategyOffline}

	blob, err := os.ReadFile(blobPath)
	if err != nil {
		err = Wrap(ErrBlobUnreadable, StrategyOffline, "read blob", blobPath, err)
		r.finish(j, report, history.Outcome{Title: id}, err)
		return report, err
	}
	return r.offline(j, blob, id, out, report)
}

// Offline carves the entries of blob into out. An empty out places
// "<id>.epub" in the output directory. No file is written when nothing is
// recovered.
func (r *Reconstructor) Offline(ctx context.Context, blob []byte, id, out string, fn progress.Func) (*Report, error) {
	j := r.begin(ctx, StrategyOffline, id, fn)
	report := &Report{JobID: j.jobID, Strategy: StrategyOffline}
	return r.offline(j, blob, id, out, report)
}

func (r *Reconstructor) offline(j *run, blob []byte, id, out string, report *Report) (*Report, error) {
	report.Title = id
	outcome := history.Outcome{Title: id}
	if out == "" {
		out = filepath.Join(r.opts.OutputDir, textutil.SanitizeToken(id)+".epub")
	}

	j.phase = "read"
	j.reporter.Report(offlineRead)
	j.logger.Info("blob loaded", logging.Int("bytes", len(blob)))

	j.phase = "carve"
	res, err := carve.Carve(j.ctx, blob, carve.Options{
		MaxEntrySize:        r.opts.MaxEntrySize,
		CancelCheckInterval: r.opts.CancelCheckInterval,
		Progress:            j.reporter,
		Range:               progress.Range{From: offlineRead, To: offlineScanned},
		Logger:              r.opts.Logger,
	})
	if err != nil {
		if !errors.Is(err, carve.ErrNoEntriesRecovered) {
			r.finish(j, report, outcome, err)
			return report, err
		}
		err = Wrap(carve.ErrNoEntriesRecovered, StrategyOffline, "carve", "blob holds no usable entries", nil)
		r.finish(j, report, outcome, err)
		return report, err
	}
	report.Carve = res
	outcome.TotalItems = res.Matches
	outcome.RecoveredItems = res.Recovered
	outcome.FailedItems = res.Matches - res.Recovered

	j.phase = "package"
	j.reporter.Report(offlineRepack)
	n, err := carve.Repack(out, res)
	if err != nil {
		err = Wrap(ErrOutput, StrategyOffline, "repack", "", err)
		r.finish(j, report, outcome, err)
		return report, err
	}
	report.Entries = n
	report.OutputPath = out
	outcome.OutputPath = out
	j.reporter.Report(100)

	r.finish(j, report, outcome, nil)
	return report, nil
}
