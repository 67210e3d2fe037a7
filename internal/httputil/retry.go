// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across pipeline stages.
package httputil

import (
	"context"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// DoWithRetry executes an HTTP request and retries transient failures:
// transport errors and HTTP 429 (Too Many Requests), with exponential
// backoff starting at RetryBaseDelay and doubling each attempt.
//
// Schema and parse failures happen after this function returns and are
// never retried here; only the transport layer is considered transient.
// When maxRetries is 0 the default (3) is used. If the context is
// cancelled during a backoff wait the function returns ctx.Err(). After
// exhausting retries the last response or transport error is returned
// so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		clone := req.Clone(ctx)
		if req.GetBody != nil {
			// Clone shares the original (possibly consumed) body; a
			// retried request needs a fresh reader.
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			clone.Body = body
		}
		resp, err := client.Do(clone)
		if err == nil && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if err != nil {
			// Cancellation is not transient.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		}

		if attempt >= maxRetries {
			if err != nil {
				return nil, lastErr
			}
			// Exhausted retries: return the 429 response as-is.
			return resp, nil
		}

		if err == nil {
			drain(resp)
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
