package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aeroopt/optimization-core/pkg/config"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func transientOnly(err error) bool {
	return errors.Is(err, errTransient)
}

func TestRetryPolicySucceedsAfterTransientFailures(t *testing.T) {
	p := NewRetryPolicy(3, time.Millisecond, 2.0, transientOnly)

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicyExhaustsAttempts(t *testing.T) {
	p := NewRetryPolicy(3, time.Millisecond, 2.0, transientOnly)

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errTransient
	})

	if !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error after exhaustion, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicyFailsFastOnNonRetryable(t *testing.T) {
	p := NewRetryPolicy(5, time.Millisecond, 2.0, transientOnly)

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errFatal
	})

	if !errors.Is(err, errFatal) {
		t.Fatalf("expected fatal error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestRetryPolicyHonorsContextCancellation(t *testing.T) {
	p := NewRetryPolicy(3, time.Hour, 2.0, transientOnly)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(ctx context.Context) error {
			attempts++
			return errTransient
		})
	}()

	// Let the first attempt fail and enter the backoff wait.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}

	if attempts != 1 {
		t.Errorf("expected a single attempt before cancellation, got %d", attempts)
	}
}

func TestRetryPolicyDelaysDouble(t *testing.T) {
	p := NewRetryPolicy(4, 100*time.Millisecond, 2.0, transientOnly)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.expected {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := NewRetryPolicyFromConfig(config.Retry{MaxAttempts: 5, BaseDelayMs: 50, Multiplier: 2.0}, transientOnly)

	if p.MaxAttempts() != 5 {
		t.Errorf("expected 5 attempts, got %d", p.MaxAttempts())
	}
	if got := p.Delay(1); got != 50*time.Millisecond {
		t.Errorf("Delay(1) = %v, want 50ms", got)
	}
	if p.ShouldRetry(5, errTransient) {
		t.Error("must not retry past the attempt ceiling")
	}
	if p.ShouldRetry(1, errFatal) {
		t.Error("must not retry non-retryable errors")
	}
	if !p.ShouldRetry(1, errTransient) {
		t.Error("expected retry for transient error below ceiling")
	}
}
