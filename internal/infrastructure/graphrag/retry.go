package graphrag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig defines the backoff behavior for transient graph faults.
type RetryConfig struct {
	MaxRetries    int           // additional attempts after the first
	BaseDelay     time.Duration // delay before the first retry
	MaxDelay      time.Duration // cap on the computed delay
	BackoffFactor float64       // exponential multiplier
	JitterFactor  float64       // ± fraction applied to the delay
}

// DefaultRetryConfig returns the shipping retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterFactor:  0.25,
	}
}

// transientError marks faults worth retrying: transport errors, timeouts and
// 5xx answers. Upstream rejections and caller cancellations are not wrapped.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

func markTransient(err error) error {
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// retryWithBackoff runs op once plus up to MaxRetries more times, retrying
// transient faults only. The sleep between attempts honors ctx.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, err error), op func() error) error {
	var lastErr error
	attempts := cfg.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		timer := time.NewTimer(cfg.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// delay computes exponential backoff with jitter, capped at MaxDelay.
func (c RetryConfig) delay(attempt int) time.Duration {
	backoff := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt))

	jitter := backoff * c.JitterFactor * (rand.Float64()*2 - 1)
	delay := time.Duration(backoff + jitter)

	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}
