package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"flickrbackup/pkg/config"
	errs "flickrbackup/pkg/errors"
)

func TestExponentialBackoff(t *testing.T) {
	eb := &ExponentialBackoff{
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

	for _, tt := range tests {
		if got := eb.NextDelay(tt.attempt); got != tt.expected {
			t.Errorf("Attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.5,
	}

	for i := 0; i < 50; i++ {
		d := eb.NextDelay(1)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("Expected delay within jitter bounds, got %v", d)
		}
	}
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	op := func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	if err := Do(context.Background(), op, cfg); err != nil {
		t.Errorf("Expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	transport := errs.New(errs.ErrorTypeRemoteTransport, "photos.search", "connection reset")
	op := func(ctx context.Context) error {
		attempts++
		return transport
	}

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
	}

	err := Do(context.Background(), op, cfg)
	if err == nil {
		t.Fatal("Expected error when max attempts exceeded")
	}
	if !errors.Is(err, transport) {
		t.Errorf("Expected wrapped transport error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	malformed := errs.New(errs.ErrorTypeMalformedResponse, "photosets.getPhotos", "unexpected end of JSON input")

	op := func(ctx context.Context) error {
		attempts++
		return malformed
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
	}

	err := Do(context.Background(), op, cfg)
	if err != error(malformed) {
		t.Errorf("Expected malformed error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	op := func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}

	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 50 * time.Millisecond},
		RetryIf:     func(err error) bool { return true },
	}

	if err := Do(ctx, op, cfg); err == nil {
		t.Error("Expected error when context cancelled")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts before cancellation, got %d", attempts)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(nil) {
		t.Error("nil should not be retried")
	}
	if DefaultRetryIf(context.Canceled) {
		t.Error("context cancellation should not be retried")
	}
	if !DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, "call", "slow down")) {
		t.Error("rate limit errors should be retried")
	}
	if DefaultRetryIf(errs.New(errs.ErrorTypeAuth, "call", "invalid key")) {
		t.Error("auth errors should not be retried")
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("retry me")
		}
		return 42, nil
	}, &Config{MaxAttempts: 3, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("Expected 42, got %d", result)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
		Multiplier:  3,
	}, nil)

	if cfg.MaxAttempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", cfg.MaxAttempts)
	}
	eb, ok := cfg.Backoff.(*ExponentialBackoff)
	if !ok {
		t.Fatalf("Expected exponential backoff, got %T", cfg.Backoff)
	}
	if eb.MaxDelay != 8*time.Second || eb.Multiplier != 3 {
		t.Errorf("Unexpected backoff settings: %+v", eb)
	}
}
