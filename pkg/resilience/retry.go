package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls backoff. Retryable, when set, stops retrying as soon
// as it reports false for an error. Zero fields take defaults.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	Retryable      func(error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.JitterFraction <= 0 {
		c.JitterFraction = 0.1
	}
	return c
}

// Delay returns the wait before attempt+1, exponential in attempt with
// symmetric jitter and capped at MaxDelay.
func (c RetryConfig) Delay(attempt int) time.Duration {
	c = c.withDefaults()
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	d += d * c.JitterFraction * (2*rand.Float64() - 1)
	return time.Duration(min(max(d, float64(c.InitialDelay)), float64(c.MaxDelay)))
}

// Retry calls fn until it succeeds, attempts run out, the error is not
// retryable or ctx is done.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	_, err := RetryValue(ctx, name, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryValue is Retry for operations that produce a value, such as opening a
// connection.
func RetryValue[T any](ctx context.Context, name string, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return v, nil
		}
		switch {
		case attempt == cfg.MaxAttempts:
			return zero, fmt.Errorf("all %d attempts failed for %s: %w", cfg.MaxAttempts, name, err)
		case cfg.Retryable != nil && !cfg.Retryable(err):
			return zero, fmt.Errorf("%s: permanent failure: %w", name, err)
		}

		delay := cfg.Delay(attempt)
		logger.Warn("attempt failed, backing off", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: retry aborted: %w", name, ctx.Err())
		}
	}
}
