// Package providers implements concrete Provider Interface (C1) backends:
// Anthropic-, OpenAI-, and Gemini-family adapters sharing a common retry
// helper, grounded on the teacher's BaseProvider embedding pattern.
package providers

import (
	"context"
	"time"
)

// Base supplies a linear-backoff retry helper that concrete providers
// embed. Mirrors the teacher's BaseProvider: fixed attempt count, delay
// growing linearly with attempt number.
type Base struct {
	MaxRetries int
	RetryDelay time.Duration
}

// NewBase returns a Base with the teacher's defaults (3 retries, 1s delay).
func NewBase() Base {
	return Base{MaxRetries: 3, RetryDelay: time.Second}
}

// Retry calls op until it succeeds, isRetryable returns false for its
// error, or MaxRetries is exhausted, sleeping RetryDelay*attempt between
// tries (capped by ctx cancellation).
func (b Base) Retry(ctx context.Context, isRetryable func(error) bool, op func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(b.RetryDelay * time.Duration(attempt)):
			}
		}
		text, err := op()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}
