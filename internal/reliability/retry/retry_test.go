package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		MaxAttempts:       3,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        20 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	attempts := 0
	result, err := Do(context.Background(), testConfig(), nil, "flaky", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %d", result)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	attempts := 0
	_, err := Do(context.Background(), testConfig(), nil, "doomed", func(ctx context.Context) (int, error) {
		attempts++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped original error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoRetryIfStopsEarly(t *testing.T) {
	fatal := errors.New("not retryable")
	cfg := testConfig()
	cfg.RetryIf = func(err error) bool { return false }

	attempts := 0
	_, err := Do(context.Background(), cfg, nil, "picky", func(ctx context.Context) (int, error) {
		attempts++
		return 0, fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected original error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-retryable error should not be retried, got %d attempts", attempts)
	}
}

// Cancelling the context during a backoff pause must abort the loop
// promptly instead of sleeping out the full backoff.
func TestDoCancelledDuringBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.InitialBackoff = time.Minute
	cfg.MaxBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Do(ctx, cfg, nil, "slow", func(ctx context.Context) (int, error) {
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation took %v, backoff was not interrupted", elapsed)
	}
}
