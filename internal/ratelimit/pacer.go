package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PacerConfig holds token bucket configuration.
type PacerConfig struct {
	// RequestsPerSecond is the sustained rate.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// Pacer spaces out calls with a token bucket and an optional backoff
// set by the remote side.
type Pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewPacer creates a pacer from cfg.
func NewPacer(cfg PacerConfig) *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// NewWindowPacer paces limit calls per window with the given burst.
func NewWindowPacer(limit int, window time.Duration, burst int) *Pacer {
	if burst <= 0 {
		burst = 1
	}
	perSecond := float64(limit) / window.Seconds()
	return NewPacer(PacerConfig{RequestsPerSecond: perSecond, BurstSize: burst})
}

// Wait blocks until a call can be made, respecting any recorded backoff.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return p.limiter.Wait(ctx)
}

// Backoff delays every call until d from now.
// A non-positive d defaults to 60 seconds.
func (p *Pacer) Backoff(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d <= 0 {
		d = 60 * time.Second
	}
	p.retryAt = time.Now().Add(d)
}

// Allow reports whether a call can be made immediately, consuming a token if so.
func (p *Pacer) Allow() bool {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return p.limiter.Allow()
}
