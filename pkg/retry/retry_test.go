package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "autored/pkg/errors"
	"autored/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, test := range tests {
		if got := backoff.NextDelay(test.attempt); got != test.expected {
			t.Errorf("attempt %d: expected %v, got %v", test.attempt, test.expected, got)
		}
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		if delay < 140*time.Millisecond || delay > 260*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", delay)
		}
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeServerError, "503")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	}

	if err := Do(context.Background(), op, cfg); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	authErr := errs.New(errs.ErrorTypeAuth, "bad key")
	op := func(ctx context.Context) error {
		attempts++
		return authErr
	}

	err := Do(context.Background(), op, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	})
	if !errors.Is(err, authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDoMaxAttempts(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		return errs.New(errs.ErrorTypeNetwork, "reset")
	}

	err := Do(context.Background(), op, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errs.IsType(err, errs.ErrorTypeNetwork) {
		t.Errorf("expected wrapped network error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		cancel()
		return errs.New(errs.ErrorTypeRateLimit, "429")
	}

	err := Do(ctx, op, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		Logger:      logger.NewNopLogger(),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errs.New(errs.ErrorTypeNetwork, "eof")
		}
		return "ok", nil
	}, &Config{
		MaxAttempts: 2,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"network", errs.New(errs.ErrorTypeNetwork, ""), true},
		{"rate limit", errs.New(errs.ErrorTypeRateLimit, ""), true},
		{"server", errs.New(errs.ErrorTypeServerError, ""), true},
		{"auth", errs.New(errs.ErrorTypeAuth, ""), false},
		{"login timeout", errs.LoginTimeout("marker", nil), false},
		{"publish step", errs.PublishStepTimeout(3, "upload", nil), false},
		{"plain", errors.New("x"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWait(t *testing.T) {
	if err := Wait(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestErrorTypeBackoffFor(t *testing.T) {
	b := NewErrorTypeBackoff()
	if b.For(errs.ErrorTypeRateLimit) != b.RateLimitBackoff {
		t.Error("rate limit should use RateLimitBackoff")
	}
	if b.For(errs.ErrorTypeUnknown) != b.DefaultBackoff {
		t.Error("unknown should use DefaultBackoff")
	}
}
