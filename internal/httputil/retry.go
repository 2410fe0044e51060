// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source adapters and
// the model clients.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RetryPolicy describes how a request reacts to HTTP 429 (Too Many
// Requests). Each source has its own policy.
type RetryPolicy struct {
	// Backoff is the fixed wait before retrying a rate-limited request.
	Backoff time.Duration

	// MaxRetries is the number of retries after the first 429. Zero means
	// DefaultMaxRetries.
	MaxRetries int

	// Limiter paces outgoing requests. Nil disables pacing.
	Limiter *rate.Limiter
}

// DefaultMaxRetries is one: a rate-limited request is retried exactly once.
const DefaultMaxRetries = 1

// DoWithRetry executes an HTTP request and retries on HTTP 429 after a
// fixed backoff. Every attempt first waits on the policy's limiter.
//
// On each 429 the response body is drained and closed before sleeping. If
// the context is cancelled while waiting the function returns ctx.Err().
// After exhausting retries the last 429 response is returned so the caller
// can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	maxRetries := policy.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		if policy.Limiter != nil {
			if err := policy.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(policy.Backoff):
		}
	}
}

// NewLimiter returns a limiter allowing one request every interval with a
// burst of one. A non-positive interval returns nil.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
