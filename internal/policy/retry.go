// Package policy holds small, independently testable policy objects used
// by the orchestration controller.
package policy

import (
	"context"
	"time"

	"github.com/aeroopt/optimization-core/pkg/config"
	"github.com/aeroopt/optimization-core/pkg/utils"
)

// RetryPolicy wraps an operation in bounded exponential backoff. Only
// errors the classifier marks retryable are retried; everything else
// fails fast on the first attempt.
type RetryPolicy struct {
	maxAttempts int
	backoff     utils.BackoffStrategy
	retryable   func(error) bool
}

// NewRetryPolicy creates a retry policy with explicit parameters.
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration, multiplier float64, retryable func(error) bool) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		backoff:     utils.NewExponentialBackoff(baseDelay, 0, multiplier, false),
		retryable:   retryable,
	}
}

// NewRetryPolicyFromConfig creates a retry policy from config.
func NewRetryPolicyFromConfig(cfg config.Retry, retryable func(error) bool) *RetryPolicy {
	return NewRetryPolicy(
		cfg.MaxAttempts,
		time.Duration(cfg.BaseDelayMs)*time.Millisecond,
		cfg.Multiplier,
		retryable,
	)
}

// MaxAttempts returns the attempt ceiling.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry reports whether another attempt is allowed after err on the
// given 1-indexed attempt.
func (p *RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if err == nil || attempt >= p.maxAttempts {
		return false
	}
	return p.retryable(err)
}

// Delay returns the backoff before the given 1-indexed retry attempt.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return p.backoff.NextDelay(0)
	}
	return p.backoff.NextDelay(attempt - 1)
}

// Do runs fn until it succeeds, exhausts attempts, or hits a non-retryable
// error. Context cancellation aborts waiting between attempts.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !p.ShouldRetry(attempt, err) {
			return err
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
