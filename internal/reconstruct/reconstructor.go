package reconstruct

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/carve"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/config"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fetch"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/history"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/logging"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/mirror"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/progress"
)

const (
	StrategyOnline  = "online"
	StrategyOffline = "offline"

	// maxDescriptorBytes bounds the package document download.
	maxDescriptorBytes = 16 << 20
	// defaultMirrorShare is the part of the online progress scale owned by
	// mirroring; cover handling and packaging split the rest.
	defaultMirrorShare = 90
)

// Ledger records reconstruction runs. *history.Store satisfies it.
type Ledger interface {
	Start(ctx context.Context, jobID, strategy, source string) (*history.Run, error)
	Finish(ctx context.Context, jobID string, out history.Outcome) error
}

// Options configures a Reconstructor.
type Options struct {
	StagingDir string
	// OutputDir receives archives when the caller names no output path.
	OutputDir           string
	Workers             int
	MirrorShare         int
	CancelCheckInterval int
	MaxEntrySize        int64
	// KeepOnFailure leaves the staging area of a failed online run on disk
	// so a later run can inspect it.
	KeepOnFailure bool
	Ledger        Ledger
	Logger        *slog.Logger
}

// Report describes a finished reconstruction.
type Report struct {
	JobID      string
	Strategy   string
	Title      string
	OutputPath string
	// Entries is the number of archive entries written, mimetype included.
	Entries   int
	Mirror    mirror.Result
	Carve     *carve.Result
	Resources []ResourceResult
	Duration  time.Duration
}

// Reconstructor runs reconstructions with a shared transport and settings.
type Reconstructor struct {
	fetcher fetch.Fetcher
	opts    Options
	logger  *slog.Logger
}

// New creates a Reconstructor. f may be nil when only Offline is used.
func New(f fetch.Fetcher, opts Options) *Reconstructor {
	if opts.MirrorShare <= 0 || opts.MirrorShare >= 100 {
		opts.MirrorShare = defaultMirrorShare
	}
	if opts.Workers <= 0 {
		opts.Workers = mirror.DefaultWorkers
	}
	return &Reconstructor{
		fetcher: f,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "reconstruct"),
	}
}

// NewFromConfig creates a Reconstructor from configuration values. ledger may
// be nil.
func NewFromConfig(cfg *config.Config, f fetch.Fetcher, ledger Ledger, logger *slog.Logger) *Reconstructor {
	opts := Options{
		StagingDir:          cfg.Paths.StagingDir,
		OutputDir:           cfg.Paths.OutputDir,
		Workers:             cfg.Mirror.Workers,
		MirrorShare:         cfg.Mirror.ProgressShare,
		CancelCheckInterval: cfg.Carve.CancelCheckInterval,
		MaxEntrySize:        cfg.MaxEntryBytes(),
		KeepOnFailure:       cfg.Staging.KeepOnFailure,
		Ledger:              ledger,
		Logger:              logger,
	}
	return New(f, opts)
}

// run is the per-job state shared by both strategies.
type run struct {
	ctx      context.Context
	jobID    string
	strategy string
	logger   *slog.Logger
	reporter *progress.Reporter
	phase    string
	started  time.Time
}

func (r *Reconstructor) begin(ctx context.Context, strategy, source string, fn progress.Func) *run {
	jobID := uuid.NewString()
	ctx = logging.WithJobID(ctx, jobID)
	ctx = logging.WithStrategy(ctx, strategy)
	logger := logging.WithContext(ctx, r.logger)

	j := &run{ctx: ctx, jobID: jobID, strategy: strategy, logger: logger, started: time.Now()}
	sampler := logging.NewProgressSampler(10)
	j.reporter = progress.NewReporter(func(p int) {
		if sampler.ShouldLog(p, j.phase) {
			logger.Info("progress",
				logging.Int("percent", p),
				logging.String("phase", j.phase),
				logging.String(logging.FieldEventType, "progress"),
			)
		}
		if fn != nil {
			fn(p)
		}
	})

	if r.opts.Ledger != nil {
		if _, err := r.opts.Ledger.Start(context.WithoutCancel(ctx), jobID, strategy, source); err != nil {
			logging.WarnWithContext(logger, "history ledger unavailable", "history_start_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run will not appear in history"),
			)
		}
	}
	logger.Info("reconstruction started",
		logging.String("source", source),
		logging.String(logging.FieldEventType, "reconstruction_started"),
	)
	return j
}

// finish records the outcome of j. A non-nil err overrides the status in
// out. The ledger write ignores cancellation of the job context so cancelled
// runs are still recorded.
func (r *Reconstructor) finish(j *run, report *Report, out history.Outcome, err error) {
	if err != nil {
		out.Err = err
		out.Status = FailureStatus(err)
	}
	if out.Status == "" {
		out.Status = history.StatusSucceeded
	}
	if report != nil {
		report.Duration = time.Since(j.started)
	}

	if err != nil {
		logging.ErrorWithContext(j.logger, "reconstruction failed", "reconstruction_failed",
			logging.Error(err),
			logging.String("status", string(out.Status)),
		)
	} else {
		j.logger.Info("reconstruction complete",
			logging.String("output", out.OutputPath),
			logging.String("status", string(out.Status)),
			logging.Duration("elapsed", time.Since(j.started)),
			logging.String(logging.FieldEventType, "reconstruction_complete"),
		)
	}

	if r.opts.Ledger == nil {
		return
	}
	if lerr := r.opts.Ledger.Finish(context.WithoutCancel(j.ctx), j.jobID, out); lerr != nil {
		logging.WarnWithContext(j.logger, "history ledger update failed", "history_finish_failed",
			logging.Error(lerr),
			logging.String(logging.FieldImpact, "run status in history may be stale"),
		)
	}
}
