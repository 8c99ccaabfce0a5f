package feed

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStaleSnapshot reports that a submitted snapshot has already been
// superseded by a newer one. The watcher discards it without evaluating.
var ErrStaleSnapshot = errors.New("stale snapshot")

// View is the derived state the presentation layer paints for a
// time-windowed slot: the active record, if any, and its countdown.
type View[T any] struct {
	Active    bool      `json:"active"`
	Key       string    `json:"key,omitempty"`
	Record    T         `json:"record"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Remaining Countdown `json:"remaining"`
}

// Watcher funnels the two triggers that invalidate a time-windowed view -
// store pushes and wall-clock ticks - through a single evaluation path, so
// the displayed record and countdown are always derived from one consistent
// (collection, now) pair. It never fetches data itself; snapshots arrive
// via Update/UpdateAt from an existing subscription.
type Watcher[T any] struct {
	uploadedAt func(T) time.Time
	window     time.Duration
	interval   time.Duration
	now        func() time.Time
	sink       func(View[T])

	mu       sync.Mutex
	coll     map[string]T
	revision uint64
	current  View[T]
}

// NewWatcher creates a watcher that re-evaluates once per second. sink may
// be nil; it is invoked, with the watcher lock held, whenever the evaluated
// view changes, so it must not call back into the watcher.
func NewWatcher[T any](uploadedAt func(T) time.Time, window time.Duration, sink func(View[T])) *Watcher[T] {
	return &Watcher[T]{
		uploadedAt: uploadedAt,
		window:     window,
		interval:   time.Second,
		now:        time.Now,
		sink:       sink,
	}
}

// Update replaces the watched collection with a fresh snapshot and
// re-evaluates immediately.
func (w *Watcher[T]) Update(snapshot map[string]T) {
	w.mu.Lock()
	w.revision++
	_ = w.updateLocked(snapshot, w.revision)
	w.mu.Unlock()
}

// UpdateAt is Update for callers that number their snapshot deliveries.
// A revision at or below the last accepted one is discarded with
// ErrStaleSnapshot instead of clobbering newer data.
func (w *Watcher[T]) UpdateAt(snapshot map[string]T, revision uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if revision <= w.revision {
		return ErrStaleSnapshot
	}
	return w.updateLocked(snapshot, revision)
}

func (w *Watcher[T]) updateLocked(snapshot map[string]T, revision uint64) error {
	w.coll = snapshot
	w.revision = revision
	w.refreshLocked()
	return nil
}

// Tick advances the view against the current wall clock without touching
// the collection. Exposed for the timer loop and for tests.
func (w *Watcher[T]) Tick() {
	w.mu.Lock()
	w.refreshLocked()
	w.mu.Unlock()
}

// Current returns the last evaluated view.
func (w *Watcher[T]) Current() View[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run drives the once-per-second re-evaluation until ctx is cancelled.
// Cancellation detaches cleanly; no tick runs after Run returns.
func (w *Watcher[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick()
		}
	}
}

func (w *Watcher[T]) refreshLocked() {
	now := w.now()
	view := View[T]{}
	if record, key, ok := SelectActive(w.coll, w.uploadedAt, now, w.window); ok {
		expiry := w.uploadedAt(record).Add(w.window)
		view = View[T]{
			Active:    true,
			Key:       key,
			Record:    record,
			ExpiresAt: expiry,
			Remaining: Remaining(expiry, now),
		}
	}
	if viewEqual(view, w.current) {
		return
	}
	w.current = view
	if w.sink != nil {
		w.sink(view)
	}
}

func viewEqual[T any](a, b View[T]) bool {
	return a.Active == b.Active &&
		a.Key == b.Key &&
		a.ExpiresAt.Equal(b.ExpiresAt) &&
		a.Remaining == b.Remaining
}
