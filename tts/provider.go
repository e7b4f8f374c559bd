// Package tts converts text to narration audio through interchangeable
// cloud providers, with per-provider retry, priority fallback and caching.
package tts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Provider is one concrete speech-synthesis backend.
type Provider interface {
	Name() string
	// Synthesize returns encoded audio bytes for the text in the given
	// language, or an error once its retry budget is exhausted.
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}

const synthesisAttempts = 3

// retrySynthesize runs one provider call under bounded exponential backoff.
// The call function marks non-retryable failures with backoff.Permanent.
func retrySynthesize(ctx context.Context, call func() ([]byte, error)) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	return backoff.RetryWithData(call,
		backoff.WithContext(backoff.WithMaxRetries(bo, synthesisAttempts-1), ctx))
}

// classifyHTTPError wraps a non-2xx synthesis response. Timeouts, rate limits
// and server errors are transient and stay retryable; everything else (bad
// credentials, invalid request) is permanent and surfaces immediately.
func classifyHTTPError(statusCode int, body string) error {
	err := fmt.Errorf("unexpected status %d: %s", statusCode, body)
	if statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError {
		return err
	}
	return backoff.Permanent(err)
}
