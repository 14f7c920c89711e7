// Package webhook delivers job events to HTTP endpoints with HMAC signing
// and linear retry backoff.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure Notifier implements the interface.
var _ driven.Notifier = (*Notifier)(nil)

// Header names.
const (
	HeaderEvent     = "X-Aegis-Event"
	HeaderSignature = "X-Aegis-Signature"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
	DefaultRate       = 10
	DefaultBurst      = 5
)

// ErrDeliveryFailed is returned when every attempt fails.
var ErrDeliveryFailed = errors.New("webhook delivery failed")

// Config holds notifier configuration.
type Config struct {
	// Timeout bounds a single POST (default 30s).
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt (default 3).
	MaxRetries int

	// RetryDelay is multiplied by the retry number (default 5s).
	RetryDelay time.Duration

	// RatePerSecond caps outbound posts across all deliveries (default 10).
	RatePerSecond float64

	// Burst is the token bucket size (default 5).
	Burst int
}

// Notifier posts signed JSON events.
type Notifier struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	now        func() time.Time
}

// New creates a notifier.
func New(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	return &Notifier{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		now:        time.Now,
	}
}

// Notify delivers one event. Status 200, 201 and 202 count as success.
// Any other status or a transport error is retried after
// RetryDelay × (retry+1).
func (n *Notifier) Notify(ctx context.Context, d domain.WebhookDelivery) error {
	if strings.TrimSpace(d.URL) == "" {
		return fmt.Errorf("%w: webhook URL is required", domain.ErrInvalidInput)
	}

	body, err := n.payload(d)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := n.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = n.post(ctx, d, body)
		if lastErr == nil {
			return nil
		}
		log.Printf("webhook: %s attempt %d/%d to %s: %v", d.Event, attempt+1, n.maxRetries+1, d.URL, lastErr)
	}
	return fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, d.URL, lastErr)
}

// payload renders {data, event, timestamp} with sorted top-level keys.
func (n *Notifier) payload(d domain.WebhookDelivery) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"event":     d.Event,
		"timestamp": n.now().UTC().Format(time.RFC3339Nano),
		"data":      d.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook: marshal payload: %w", err)
	}
	return body, nil
}

func (n *Notifier) post(ctx context.Context, d domain.WebhookDelivery, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, d.Event)
	if d.Secret != "" {
		req.Header.Set(HeaderSignature, "sha256="+Sign(body, d.Secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		return fmt.Errorf("status %d", resp.StatusCode)
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value, with or without the sha256= prefix.
func Verify(body []byte, signature, secret string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")
	expected := Sign(body, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
