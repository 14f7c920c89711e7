// Package fetch implements the external data-fetch integration over HTTP.
//
// A fetch is a single JSON POST. The remote answers with a per-type
// breakdown so partial success survives the round trip.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.FetchIntegration = (*Client)(nil)

// DefaultTimeout bounds one fetch.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps the decoded reply.
const maxResponseBytes = 16 << 20

// Config holds client configuration.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client posts fetch requests to a configured endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// wireTypeResult carries raw JSON data per type.
type wireTypeResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type wireResult struct {
	Success bool                      `json:"success"`
	PerType map[string]wireTypeResult `json:"per_type"`
	Errors  []string                  `json:"errors,omitempty"`
}

// New creates a fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: fetch URL is required", domain.ErrInvalidInput)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
	}, nil
}

// Fetch posts req and decodes the per-type result. Types the remote
// omits are reported as failed so the caller sees every requested type.
func (c *Client) Fetch(ctx context.Context, req domain.FetchRequest) (*domain.FetchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fetch: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &domain.RemoteRateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("fetch: remote returned status %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var wire wireResult
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("fetch: decode response: %w", err)
	}
	return toResult(req, wire), nil
}

func toResult(req domain.FetchRequest, wire wireResult) *domain.FetchResult {
	result := &domain.FetchResult{
		ConsentID: req.ConsentID,
		PerType:   make(map[string]domain.FetchTypeResult, len(req.DataTypes)),
		Errors:    wire.Errors,
	}
	allOK := true
	for _, dt := range req.DataTypes {
		w, ok := wire.PerType[dt]
		if !ok {
			w = wireTypeResult{Error: "not returned by remote"}
		}
		if !w.Success {
			allOK = false
			if w.Error != "" {
				result.Errors = append(result.Errors, dt+": "+w.Error)
			}
		}
		result.PerType[dt] = domain.FetchTypeResult{Success: w.Success, Data: []byte(w.Data), Error: w.Error}
	}
	result.Success = wire.Success && allOK
	return result
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// IsRemoteRateLimited reports whether err came from a 429 reply.
func IsRemoteRateLimited(err error) bool {
	var remote *domain.RemoteRateLimitError
	return errors.As(err, &remote)
}
