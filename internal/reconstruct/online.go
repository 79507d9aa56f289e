package reconstruct

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fetch"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/fileutil"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/history"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/logging"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/manifest"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/mirror"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/ocf"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/opf"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/preflight"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/progress"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/staging"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/textutil"
)

// Online reconstructs the book described by src into out. An empty out
// places "<title>.epub" in the output directory. Individual asset failures
// do not fail the run; they are listed in Report.Mirror.Failures. Companion
// resources listed in src are downloaded next to the archive afterwards.
func (r *Reconstructor) Online(ctx context.Context, src manifest.Source, out string, fn progress.Func) (*Report, error) {
	j := r.begin(ctx, StrategyOnline, describeSource(src), fn)
	report := &Report{JobID: j.jobID, Strategy: StrategyOnline}
	outcome := history.Outcome{}

	err := r.online(j, src, out, report, &outcome)
	if err == nil {
		outcome.Status = history.StatusSucceeded
		if len(report.Mirror.Failures) > 0 {
			outcome.Status = history.StatusPartial
			outcome.Err = report.Mirror.Err()
		}
	}
	outcome.Title = report.Title
	outcome.OutputPath = report.OutputPath
	r.finish(j, report, outcome, err)
	return report, err
}

func (r *Reconstructor) online(j *run, src manifest.Source, out string, report *Report, outcome *history.Outcome) (err error) {
	ctx := j.ctx
	if r.fetcher == nil {
		return Wrap(ErrValidation, StrategyOnline, "setup", "no transport configured", nil)
	}
	if err := src.Validate(); err != nil {
		return Wrap(ErrValidation, StrategyOnline, "validate source", "", err)
	}
	if check := preflight.CheckDirectoryAccess("staging", r.opts.StagingDir); !check.Passed {
		return Wrap(ErrStaging, StrategyOnline, "preflight", check.Detail, nil)
	}

	j.phase = "descriptor"
	descriptor, err := fetch.ReadAll(ctx, r.fetcher, src.PackageDocumentURL(), maxDescriptorBytes)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return Wrap(ErrDescriptorUnavailable, StrategyOnline, "fetch package document", "", err)
	}
	model, rejected, err := manifest.ParsePackageDocument(src, descriptor)
	if err != nil {
		return Wrap(ErrDescriptorUnavailable, StrategyOnline, "parse package document", "", err)
	}
	for _, rej := range rejected {
		logging.WarnWithContext(j.logger, "manifest href rejected", "href_rejected",
			logging.String("href", rej.Href),
			logging.String("reason", rej.Reason),
			logging.String(logging.FieldImpact, "asset will not be fetched"),
		)
	}
	report.Title = model.Title
	name := textutil.SafeTitle(model.Title, textutil.SanitizeToken(src.ID))
	if out == "" {
		out = filepath.Join(r.opts.OutputDir, name+".epub")
	}

	area, err := staging.Create(r.opts.StagingDir)
	if err != nil {
		return Wrap(ErrStaging, StrategyOnline, "create staging area", "", err)
	}
	j.logger.Debug("staging area created", logging.String("path", area.Path))
	defer func() {
		remove := err == nil || !r.opts.KeepOnFailure
		if cerr := area.Close(remove); cerr != nil {
			logging.WarnWithContext(j.logger, "staging area cleanup failed", "staging_cleanup_failed",
				logging.String("path", area.Path),
				logging.Error(cerr),
				logging.String(logging.FieldErrorHint, "run extractor staging clean"),
			)
		}
		if !remove {
			j.logger.Info("staging area kept", logging.String("path", area.Path))
		}
	}()

	docPath, err := area.Resolve(model.PackageDocumentPath)
	if err != nil {
		return Wrap(ErrStaging, StrategyOnline, "stage package document", "", err)
	}
	if _, err := fileutil.WriteAtomic(docPath, bytes.NewReader(descriptor)); err != nil {
		return Wrap(ErrStaging, StrategyOnline, "stage package document", "", err)
	}

	share := r.opts.MirrorShare
	overall := progress.Range{From: 0, To: 100}
	mirrorRange := overall.Split(0, share)
	coverRange := overall.Split(share, share+(100-share)/2)

	j.phase = "mirror"
	m := mirror.New(r.fetcher, mirror.Options{
		Workers:  r.opts.Workers,
		Progress: j.reporter,
		Range:    mirrorRange,
		Logger:   r.opts.Logger,
	})
	res, err := m.Run(ctx, model, area)
	report.Mirror = res
	outcome.TotalItems = res.Total
	outcome.RecoveredItems = res.Fetched + res.Skipped
	outcome.FailedItems = len(res.Failures)
	if err != nil {
		return err
	}

	j.phase = "cover"
	r.stageCover(j, model, area)
	containerPath, err := area.Resolve(ocf.ContainerPath)
	if err != nil {
		return Wrap(ErrStaging, StrategyOnline, "write container", "", err)
	}
	if _, err := fileutil.WriteAtomic(containerPath, bytes.NewReader(ocf.ContainerXML(model.PackageDocumentPath))); err != nil {
		return Wrap(ErrStaging, StrategyOnline, "write container", "", err)
	}
	j.reporter.Report(coverRange.To)
	if err := ctx.Err(); err != nil {
		return err
	}

	j.phase = "package"
	n, err := ocf.PackDirectory(area.Path, out)
	if err != nil {
		return Wrap(ErrOutput, StrategyOnline, "package", "", err)
	}
	report.Entries = n
	report.OutputPath = out
	j.reporter.Report(100)

	if len(src.Resources) > 0 {
		dir := filepath.Join(filepath.Dir(out), name+"_Resources")
		report.Resources = r.downloadResources(ctx, j, dir, src.Resources)
	}
	return nil
}

// stageCover fetches the cover next to the package document and declares it
// in the manifest. Every failure here is logged and skipped.
func (r *Reconstructor) stageCover(j *run, model manifest.Model, area *staging.Area) {
	if strings.TrimSpace(model.CoverImageURL) == "" {
		return
	}
	warn := func(msg, event string, err error) {
		logging.WarnWithContext(j.logger, msg, event,
			logging.String("url", model.CoverImageURL),
			logging.Error(err),
			logging.String(logging.FieldImpact, "book keeps its original cover"),
		)
	}

	target, err := area.Resolve(path.Join(model.PackageDir(), opf.CoverFileName))
	if err != nil {
		warn("cover not staged", "cover_stage_failed", err)
		return
	}
	resp, err := r.fetcher.Fetch(j.ctx, model.CoverImageURL)
	if err != nil {
		warn("cover not fetched", "cover_fetch_failed", err)
		return
	}
	_, err = fileutil.WriteAtomic(target, resp.Body)
	resp.Body.Close()
	if err != nil {
		warn("cover not staged", "cover_stage_failed", err)
		return
	}

	mediaType := ""
	if ct := strings.TrimSpace(strings.SplitN(resp.ContentType, ";", 2)[0]); strings.HasPrefix(ct, "image/") {
		mediaType = ct
	}
	docPath, _ := area.Resolve(model.PackageDocumentPath)
	if err := opf.InjectCover(docPath, opf.CoverFileName, mediaType); err != nil {
		event := "cover_injection_failed"
		if errors.Is(err, opf.ErrInjectionSkipped) {
			event = "cover_injection_skipped"
		}
		warn("cover not declared in package document", event, err)
		return
	}
	j.logger.Debug("cover injected", logging.String("media_type", mediaType))
}

func describeSource(src manifest.Source) string {
	if src.ID != "" {
		return fmt.Sprintf("%s (%s)", src.ID, src.PackageDocumentURL())
	}
	return src.PackageDocumentURL()
}
