// Package progress turns per-phase completion counts into a single
// monotonically non-decreasing percentage.
package progress

import "sync"

// Func receives an overall completion percentage in [0, 100].
type Func func(percent int)

// Range is the slice of the overall 0-100 scale owned by one phase.
type Range struct {
	From int
	To   int
}

// At scales done/total into the range. A zero total maps to the end of the range.
func (r Range) At(done, total int) int {
	if total <= 0 {
		return r.To
	}
	done = max(0, min(done, total))
	return r.From + (r.To-r.From)*done/total
}

// Split returns the sub-range between two fractions (0-100) of r.
func (r Range) Split(fromPct, toPct int) Range {
	return Range{From: r.At(fromPct, 100), To: r.At(toPct, 100)}
}

// Reporter serialises progress updates from any number of goroutines and
// forwards only values that move forward. A nil Reporter discards updates.
type Reporter struct {
	mu      sync.Mutex
	fn      Func
	last    int
	emitted bool
}

// NewReporter wraps fn. fn may be nil.
func NewReporter(fn Func) *Reporter {
	return &Reporter{fn: fn}
}

// Report emits percent, clamped to [0, 100], unless an equal or larger value
// was already emitted.
func (r *Reporter) Report(percent int) {
	if r == nil {
		return
	}
	percent = max(0, min(percent, 100))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emitted && percent <= r.last {
		return
	}
	r.last = percent
	r.emitted = true
	if r.fn != nil {
		r.fn(percent)
	}
}

// Step reports done/total scaled into rng.
func (r *Reporter) Step(rng Range, done, total int) {
	r.Report(rng.At(done, total))
}

// Last returns the most recently emitted value.
func (r *Reporter) Last() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
