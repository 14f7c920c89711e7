package ratelimit

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// SlidingWindow allows at most limit events in any rolling window.
// Timestamps are kept in arrival order and pruned on every check.
type SlidingWindow struct {
	mu     sync.Mutex
	events []time.Time
	limit  int
	window time.Duration
	now    Clock
}

// Option configures a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(w *SlidingWindow) {
		w.now = c
	}
}

// NewSlidingWindow creates a limiter allowing limit events per window.
func NewSlidingWindow(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	w := &SlidingWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// prune drops events older than the window. Caller holds mu.
func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.events) && !w.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}

// Allow reports whether another event fits in the window. It does not record one.
func (w *SlidingWindow) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.events) < w.limit
}

// Record appends an event at the current time.
func (w *SlidingWindow) Record() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.prune(now)
	w.events = append(w.events, now)
}

// Reserve records an event only if it is allowed, as one atomic step.
func (w *SlidingWindow) Reserve() bool {
	return w.Acquire() != nil
}

// Reservation is a slot taken by Acquire.
type Reservation struct {
	w    *SlidingWindow
	at   time.Time
	once sync.Once
}

// Acquire takes a slot like Reserve but returns a handle that can give
// it back. It returns nil when the window is full.
func (w *SlidingWindow) Acquire() *Reservation {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.prune(now)
	if len(w.events) >= w.limit {
		return nil
	}
	w.events = append(w.events, now)
	return &Reservation{w: w, at: now}
}

// Cancel returns the slot to the window. Only the first call has an effect.
func (r *Reservation) Cancel() {
	r.once.Do(func() {
		r.w.mu.Lock()
		defer r.w.mu.Unlock()
		for i := len(r.w.events) - 1; i >= 0; i-- {
			if r.w.events[i].Equal(r.at) {
				r.w.events = append(r.w.events[:i], r.w.events[i+1:]...)
				return
			}
		}
	})
}

// Remaining returns how many events are still allowed in the window.
func (w *SlidingWindow) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	if n := w.limit - len(w.events); n > 0 {
		return n
	}
	return 0
}

// Limit returns the configured maximum per window.
func (w *SlidingWindow) Limit() int {
	return w.limit
}
