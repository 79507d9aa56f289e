package carve

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/logging"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/ocf"
	"github.com/mahadisabot/Cambridge-Go-Extractor/internal/progress"
)

// DefaultCancelCheckInterval is the number of probe matches between
// cancellation checks and progress reports.
const DefaultCancelCheckInterval = 50

// ErrNoEntriesRecovered is returned when a blob yields no usable entry.
var ErrNoEntriesRecovered = errors.New("no entries recovered")

// CarvedEntry is one recovered file.
type CarvedEntry struct {
	Name   string
	Method uint16
	Data   []byte
	// DecodeFailed is set when the stored name was not valid UTF-8 and was
	// read as code page 437 instead.
	DecodeFailed bool
}

// Options configures Carve.
type Options struct {
	MaxEntrySize        int64
	CancelCheckInterval int
	Progress            *progress.Reporter
	Range               progress.Range
	Logger              *slog.Logger
}

// Result holds the entries recovered from one blob.
type Result struct {
	// Entries are unique by name, in order of first appearance. When a name
	// recurs the later content replaces the earlier one in place.
	Entries []CarvedEntry
	// Matches counts probe pattern hits.
	Matches int
	// Recovered counts successful decodes, including ones later replaced by a
	// duplicate name.
	Recovered int
	Discarded map[DiscardReason]int
}

// MimeType returns the content of a recovered "mimetype" entry, or nil.
func (r *Result) MimeType() []byte {
	for _, e := range r.Entries {
		if e.Name == ocf.MimeTypeName {
			return e.Data
		}
	}
	return nil
}

// Carve scans blob and returns every entry that could be recovered. It
// returns ErrNoEntriesRecovered when nothing survives, and ctx.Err() when ctx
// is cancelled mid-scan.
func Carve(ctx context.Context, blob []byte, opts Options) (*Result, error) {
	interval := opts.CancelCheckInterval
	if interval <= 0 {
		interval = DefaultCancelCheckInterval
	}
	rng := opts.Range
	if rng == (progress.Range{}) {
		rng = progress.Range{From: 0, To: 100}
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "carve"))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Discarded: make(map[DiscardReason]int)}
	index := make(map[string]int)
	s := NewScanner(blob, opts.MaxEntrySize)
	for s.Scan() {
		c := s.Candidate()
		if c.Recovered() {
			res.Recovered++
			if i, ok := index[c.Entry.Name]; ok {
				res.Entries[i] = c.Entry
				logger.Debug("duplicate entry name replaced", logging.String("name", c.Entry.Name))
			} else {
				index[c.Entry.Name] = len(res.Entries)
				res.Entries = append(res.Entries, c.Entry)
			}
		} else {
			res.Discarded[c.Reason]++
			logger.Debug("candidate discarded",
				logging.Int("offset", c.Offset),
				logging.String("reason", c.Reason.String()),
			)
		}
		if s.Matches()%interval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			opts.Progress.Step(rng, c.Offset, len(blob))
		}
	}
	res.Matches = s.Matches()
	opts.Progress.Step(rng, len(blob), len(blob))

	if len(res.Entries) == 0 {
		return nil, ErrNoEntriesRecovered
	}
	logger.Info("carve complete",
		logging.Int("matches", res.Matches),
		logging.Int("recovered", res.Recovered),
		logging.Int("entries", len(res.Entries)),
		logging.Int("discarded", res.Matches-res.Recovered),
		logging.String(logging.FieldEventType, "carve_complete"),
	)
	return res, nil
}

// Repack writes the recovered entries to out as a container with the
// mimetype entry first. A recovered mimetype is used verbatim; otherwise the
// canonical value is written. Nothing is written when res holds no entries.
func Repack(out string, res *Result) (int, error) {
	if res == nil || len(res.Entries) == 0 {
		return 0, ErrNoEntriesRecovered
	}
	entries := make([]ocf.Entry, 0, len(res.Entries))
	for _, e := range res.Entries {
		if e.Name == ocf.MimeTypeName {
			continue
		}
		entries = append(entries, ocf.Entry{Name: e.Name, Data: e.Data})
	}
	if err := ocf.WriteArchive(out, res.MimeType(), entries); err != nil {
		return 0, err
	}
	return len(entries) + 1, nil
}
