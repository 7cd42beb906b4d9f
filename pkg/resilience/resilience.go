package resilience

import (
	"context"
	"time"
)

// RetryConfig describes a bounded retry loop with exponential backoff.
// Retryable decides whether a failure is worth another attempt; when nil,
// every failure is retried. Sleep is injectable for tests and defaults to
// time.Sleep.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Retryable       func(error) bool
	Sleep           func(time.Duration)
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     4,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

// RetryWithExponentialBackoff runs fn up to MaxAttempts times. A failure the
// Retryable predicate rejects is returned immediately without further
// attempts or delays. The backoff interval doubles per attempt (Multiplier)
// and is capped at MaxInterval.
func RetryWithExponentialBackoff(ctx context.Context, config *RetryConfig, fn func() error) error {
	sleep := config.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	interval := config.InitialInterval

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if config.Retryable != nil && !config.Retryable(lastErr) {
			return lastErr
		}

		if attempt < config.MaxAttempts-1 {
			sleep(interval)
			interval = time.Duration(float64(interval) * config.Multiplier)
			if interval > config.MaxInterval {
				interval = config.MaxInterval
			}
		}
	}

	return lastErr
}
