package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	errs "dbextract/pkg/errors"
	"dbextract/pkg/logger"
)

func testConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.NewNopLogger(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, testConfig(3))

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestDoRetriesConnectivityErrors(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.NewConnectivity("query window", stderrors.New("connection reset"))
		}
		return nil
	}, testConfig(5))

	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoFailsFastOnNonRetryable(t *testing.T) {
	calls := 0
	persistErr := errs.NewPersistence("write output", stderrors.New("disk full"))

	err := Do(func() error {
		calls++
		return persistErr
	}, testConfig(5))

	if !stderrors.Is(err, persistErr) {
		t.Fatalf("Expected the persistence error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected no retries for persistence error, got %d calls", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return errs.NewConnectivity("query window", stderrors.New("timeout"))
	}, testConfig(3))

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := testConfig(0) // unlimited attempts
	cfg.Context = ctx
	cfg.Backoff = &ConstantBackoff{Delay: 50 * time.Millisecond}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(func() error {
		return errs.NewConnectivity("query window", stderrors.New("timeout"))
	}, cfg)

	if err == nil || !stderrors.Is(err, context.Canceled) {
		t.Errorf("Expected cancellation error, got %v", err)
	}
}

func TestFetchRetrierLogsRetries(t *testing.T) {
	captured := logger.NewTestLogger()
	logger.SetLogger(captured)
	defer logger.SetLogger(logger.NewNopLogger())

	calls := 0
	r := NewFetchRetrier(3, time.Millisecond, time.Millisecond, logger.NewNopLogger())
	err := r.Do(func() error {
		calls++
		if calls < 3 {
			return errs.NewConnectivity("query window", stderrors.New("connection reset"))
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if !captured.HasMessage("Fetch failed, retrying") {
		t.Error("Expected a retry warning per failed attempt")
	}
	if got := len(captured.MessagesAtLevel("WARN")); got != 2 {
		t.Errorf("Expected 2 retry warnings, got %d", got)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connectivity", errs.NewConnectivity("x", stderrors.New("y")), true},
		{"persistence", errs.NewPersistence("x", stderrors.New("y")), false},
		{"corrupt state", errs.NewCorruptState("x", stderrors.New("y")), false},
		{"config", errs.NewConfig("x"), false},
		{"context canceled", context.Canceled, false},
		{"untyped", stderrors.New("driver: bad connection"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	result, err := DoWithResult(func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errs.NewConnectivity("x", stderrors.New("y"))
		}
		return 42, nil
	}, testConfig(3))

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result != 42 {
		t.Errorf("Expected 42, got %d", result)
	}
}

func TestExponentialBackoffGrows(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0, // deterministic
	}

	if d := eb.NextDelay(1); d != time.Second {
		t.Errorf("Expected 1s for first attempt, got %v", d)
	}
	if d := eb.NextDelay(2); d != 2*time.Second {
		t.Errorf("Expected 2s for second attempt, got %v", d)
	}
	if d := eb.NextDelay(10); d != time.Minute {
		t.Errorf("Expected cap at 1m, got %v", d)
	}
	if d := eb.NextDelay(0); d != 0 {
		t.Errorf("Expected 0 for attempt 0, got %v", d)
	}
}

func TestWait(t *testing.T) {
	t.Run("ZeroDelay", func(t *testing.T) {
		if err := Wait(context.Background(), 0); err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := Wait(ctx, time.Minute); !stderrors.Is(err, context.Canceled) {
			t.Errorf("Expected cancellation, got %v", err)
		}
	})
}
