// Package poll bridges the gap between "report created" and "report
// complete": on-page metrics are available the moment the backend answers an
// analyze request, but Lighthouse scores land later, filled in by the
// backend's asynchronous job. A Watcher re-fetches a report on a fixed
// cadence until a score appears or the attempt budget runs out.
package poll

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sitesage/gateway/internal/model"
)

// Status is the watcher's lifecycle state
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPolling   Status = "polling"
	StatusCompleted Status = "completed"
	// StatusExhausted means the attempt budget ran out before any Lighthouse
	// score appeared. Terminal but not an error: results may still arrive
	// later and show up on the next page load.
	StatusExhausted Status = "exhausted"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 24
)

// Fetcher retrieves one report by ID. *client.Client satisfies this.
type Fetcher interface {
	Report(ctx context.Context, id int) (*model.Report, error)
}

// Watcher polls a single report until at least one Lighthouse score is
// non-null or the attempt budget is exhausted. Attempts are strictly
// sequential: the next one is scheduled only after the previous fetch
// resolves, so there is never more than one in-flight request per report.
type Watcher struct {
	fetcher      Fetcher
	interval     time.Duration
	maxAttempts  int
	fetchTimeout time.Duration
	onUpdate     func(*model.Report)
	onDone       func(Status)

	// after is overridable for tests so ticks can be driven deterministically
	after func(time.Duration) <-chan time.Time

	mu       sync.Mutex
	status   Status
	reportID int
	gen      uint64
	cancel   context.CancelFunc
}

// Option configures a Watcher
type Option func(*Watcher)

// WithInterval sets the delay between attempts.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithMaxAttempts sets the attempt budget.
func WithMaxAttempts(n int) Option {
	return func(w *Watcher) { w.maxAttempts = n }
}

// WithTimer replaces the timer primitive. Tests only.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(w *Watcher) { w.after = after }
}

// OnUpdate registers a callback invoked with every freshly fetched report.
func OnUpdate(fn func(*model.Report)) Option {
	return func(w *Watcher) { w.onUpdate = fn }
}

// OnDone registers a callback invoked exactly once on the terminal
// transition, with either StatusCompleted or StatusExhausted.
func OnDone(fn func(Status)) Option {
	return func(w *Watcher) { w.onDone = fn }
}

// New creates an idle Watcher.
func New(fetcher Fetcher, opts ...Option) *Watcher {
	w := &Watcher{
		fetcher:      fetcher,
		interval:     DefaultInterval,
		maxAttempts:  DefaultMaxAttempts,
		fetchTimeout: 10 * time.Second,
		after:        time.After,
		status:       StatusIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Status returns the current lifecycle state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Start begins polling the given report. Calling Start again for the same
// report while it is already being polled is a no-op and returns false.
// Starting a different report cancels the previous sequence first.
func (w *Watcher) Start(reportID int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status == StatusPolling {
		if w.reportID == reportID {
			return false
		}
		w.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.gen++
	w.status = StatusPolling
	w.reportID = reportID
	w.cancel = cancel

	go w.loop(ctx, w.gen, reportID)
	return true
}

// Stop cancels the current polling sequence. Any timer tick already queued
// will be discarded by the liveness check inside the loop, so no callback
// fires after Stop returns. Safe to call in any state.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status == StatusPolling {
		w.cancel()
		w.status = StatusIdle
	}
}

func (w *Watcher) loop(ctx context.Context, gen uint64, reportID int) {
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-w.after(w.interval):
		}

		// The timer channel may have been ready at the same moment as the
		// cancellation; clearing a timer cannot retract a tick already
		// queued, so re-check liveness before touching anything.
		if !w.alive(gen) {
			return
		}

		fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
		report, err := w.fetcher.Report(fetchCtx, reportID)
		cancel()

		if err != nil {
			// Failures do not interrupt the schedule, but they spend an
			// attempt so the watcher stays bounded even against an upstream
			// that errors forever.
			log.Printf("Lighthouse poll attempt %d/%d for report %d failed: %v",
				attempt, w.maxAttempts, reportID, err)
			continue
		}

		if !w.alive(gen) {
			return
		}
		if w.onUpdate != nil {
			w.onUpdate(report)
		}

		if report.LighthouseReady() {
			w.finish(gen, StatusCompleted)
			return
		}
	}

	w.finish(gen, StatusExhausted)
}

// alive reports whether this loop's polling sequence is still the active one.
func (w *Watcher) alive(gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status == StatusPolling && w.gen == gen
}

// finish performs the terminal transition and fires the done callback, at
// most once per sequence.
func (w *Watcher) finish(gen uint64, status Status) {
	w.mu.Lock()
	if w.status != StatusPolling || w.gen != gen {
		w.mu.Unlock()
		return
	}
	w.status = status
	w.mu.Unlock()

	if w.onDone != nil {
		w.onDone(status)
	}
}
