// Package ratelimit bounds calls to external integrations.
//
// SlidingWindow enforces a hard count over a rolling window and is the
// limiter of record for governed fetches. Pacer smooths bursts inside that
// window with a token bucket and honours Retry-After style backoff.
//
// Neither limiter is persisted: a restart resets the window.
package ratelimit
