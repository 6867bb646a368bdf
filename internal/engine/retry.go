package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// apiError represents a non-200 response from a model API that may or may
// not be retryable.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// isRetryable returns true for transient errors (rate limit, server errors).
func (e *apiError) isRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

const maxAttempts = 2

// backoffUnit is scaled by the attempt number between retries.
var backoffUnit = 2 * time.Second

// withRetry calls fn until it succeeds, fails with a non-retryable
// *apiError, or maxAttempts is reached.
func withRetry(ctx context.Context, provider string, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var ae *apiError
		if errors.As(err, &ae) && !ae.isRetryable() {
			return "", fmt.Errorf("%s: %w", provider, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt+1) * backoffUnit):
			}
		}
	}
	return "", fmt.Errorf("%s: %w", provider, lastErr)
}
