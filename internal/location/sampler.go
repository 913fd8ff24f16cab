// Package location turns a raw position source into a filtered stream of
// location updates suitable for proximity computation.
package location

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/nearu/nearu-backend/internal/models"
)

const (
	// AccuracyThresholdMeters is the worst accuracy accepted from a source
	AccuracyThresholdMeters = 20.0
	// MinDeltaDegrees is the per-axis movement pre-filter, about 11 m at mid-latitudes
	MinDeltaDegrees = 0.0001
	// CurrentTimeout bounds a single-shot position request
	CurrentTimeout = 5 * time.Second
	// MaxLocationAge is how long a sample stays usable
	MaxLocationAge = time.Minute
)

// Options mirrors the watch options of a platform position source
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// DefaultOptions requests high-accuracy fresh samples with a 5 s timeout
func DefaultOptions() Options {
	return Options{HighAccuracy: true, Timeout: CurrentTimeout, MaxAge: 0}
}

// Source is a platform position provider
type Source interface {
	// Watch delivers samples until the returned cancel function is called
	Watch(opts Options, onSample func(models.Location), onError func(error)) (cancel func(), err error)
	// Current returns a single position
	Current(ctx context.Context, opts Options) (models.Location, error)
}

// Sampler filters samples from a Source
type Sampler struct {
	source Source
	opts   Options
}

// NewSampler creates a sampler over source. A nil source is allowed and
// makes every operation fail with ErrUnsupported.
func NewSampler(source Source) *Sampler {
	return &Sampler{source: source, opts: DefaultOptions()}
}

// Tracker is the handle of one tracking session. It owns the watch
// subscription and the last accepted sample.
type Tracker struct {
	mu       sync.Mutex
	cancel   func()
	last     *models.Location
	stopped  bool
	onUpdate func(models.Location)
	onError  func(error)
}

// StartTracking begins continuous observation of the source. onUpdate only
// sees samples that pass the accuracy and movement filters.
func (s *Sampler) StartTracking(onUpdate func(models.Location), onError func(error)) (*Tracker, error) {
	if s.source == nil {
		return nil, models.ErrUnsupported
	}

	t := &Tracker{onUpdate: onUpdate, onError: onError}
	cancel, err := s.source.Watch(s.opts, t.handleSample, t.handleError)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	return t, nil
}

func (t *Tracker) handleSample(loc models.Location) {
	t.mu.Lock()
	if t.stopped || !t.accept(loc) {
		t.mu.Unlock()
		return
	}
	accepted := loc
	t.last = &accepted
	cb := t.onUpdate
	t.mu.Unlock()

	if cb != nil {
		cb(loc)
	}
}

func (t *Tracker) handleError(err error) {
	t.mu.Lock()
	stopped := t.stopped
	cb := t.onError
	t.mu.Unlock()

	if !stopped && cb != nil {
		cb(err)
	}
}

// accept must be called with t.mu held
func (t *Tracker) accept(loc models.Location) bool {
	if loc.Accuracy == nil || *loc.Accuracy > AccuracyThresholdMeters {
		return false
	}
	if t.last == nil {
		return true
	}
	return math.Abs(loc.Latitude-t.last.Latitude) > MinDeltaDegrees ||
		math.Abs(loc.Longitude-t.last.Longitude) > MinDeltaDegrees
}

// LastAccepted returns the most recent accepted sample, if any
func (t *Tracker) LastAccepted() (models.Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return models.Location{}, false
	}
	return *t.last, true
}

// Restore sets the last accepted sample back to last, or forgets it when last
// is nil. The movement filter then measures the next sample against last.
func (t *Tracker) Restore(last *models.Location) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if last == nil {
		t.last = nil
		return
	}
	prev := *last
	t.last = &prev
}

// Stop releases the subscription. It is idempotent and safe on a nil tracker.
func (t *Tracker) Stop() {
	if t == nil {
		return
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Stopped reports whether Stop has been called
func (t *Tracker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// CurrentLocation returns a single position using the same high-accuracy
// policy as tracking, bounded by a 5 second timeout
func (s *Sampler) CurrentLocation(ctx context.Context) (models.Location, error) {
	if s.source == nil {
		return models.Location{}, models.ErrUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	loc, err := s.source.Current(ctx, s.opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Location{}, models.ErrTimeout
		}
		return models.Location{}, err
	}
	return loc, nil
}

// IsLocationValid reports whether loc is accurate enough and no older than MaxLocationAge
func IsLocationValid(loc models.Location, now time.Time) bool {
	return loc.AccuracyOr(math.Inf(1)) <= AccuracyThresholdMeters &&
		now.UnixMilli()-loc.Timestamp <= MaxLocationAge.Milliseconds()
}
