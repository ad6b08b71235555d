package backoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YaganovValera/analytics-system/stream-connector/common/backoff"
	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
)

var fast = backoff.Config{InitialInterval: time.Millisecond, Multiplier: 1, MaxInterval: time.Millisecond, MaxElapsedTime: time.Second}

// counter reads one series from the default registry; 0 when absent.
func counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	cfg := backoff.Config{MaxElapsedTime: time.Second}
	called := 0
	err := backoff.Execute(context.Background(), "first", cfg, logger.NewNop(), func(ctx context.Context) error {
		called++
		return nil
	})
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if called != 1 {
		t.Errorf("expected 1 attempt, got %d", called)
	}
}

func TestExecute_EventualSuccess(t *testing.T) {
	called := 0
	var seen []int
	err := backoff.Execute(context.Background(), "eventual", fast, logger.NewNop(), func(ctx context.Context) error {
		called++
		seen = append(seen, backoff.Attempt(ctx))
		if called < 3 {
			return errors.New("fail")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if called != 3 {
		t.Errorf("expected 3 attempts, got %d", called)
	}
	for i, n := range seen {
		if n != i+1 {
			t.Errorf("Attempt() on call %d = %d", i+1, n)
		}
	}
	if n := backoff.Attempt(context.Background()); n != 0 {
		t.Errorf("Attempt outside Execute = %d; want 0", n)
	}
}

func TestExecute_MaxElapsedExceeded(t *testing.T) {
	cfg := backoff.Config{InitialInterval: 5 * time.Millisecond, Multiplier: 1, MaxInterval: 5 * time.Millisecond, MaxElapsedTime: 30 * time.Millisecond}
	called := 0
	err := backoff.Execute(context.Background(), "elapsed", cfg, logger.NewNop(), func(ctx context.Context) error {
		called++
		return errors.New("always fail")
	})
	var maxErr *backoff.ErrMaxRetries
	if !errors.As(err, &maxErr) {
		t.Fatalf("expected ErrMaxRetries, got %v", err)
	}
	if maxErr.Attempts != called {
		t.Errorf("attempts mismatch: ErrMaxRetries.Attempts=%d, actual=%d", maxErr.Attempts, called)
	}
	if maxErr.Op != "elapsed" || maxErr.Reason != backoff.ReasonExhausted {
		t.Errorf("op/reason = %s/%s", maxErr.Op, maxErr.Reason)
	}
}

func TestExecute_MaxAttempts(t *testing.T) {
	cfg := fast
	cfg.MaxAttempts = 3
	labels := map[string]string{"op": "capped"}
	before := counter(t, "connector_backoff_attempts_total", labels)

	called := 0
	err := backoff.Execute(context.Background(), "capped", cfg, logger.NewNop(), func(ctx context.Context) error {
		called++
		return errors.New("refused")
	})
	var maxErr *backoff.ErrMaxRetries
	if !errors.As(err, &maxErr) || maxErr.Reason != backoff.ReasonExhausted {
		t.Fatalf("err = %v; want exhausted ErrMaxRetries", err)
	}
	if called != 3 || maxErr.Attempts != 3 {
		t.Errorf("calls = %d, Attempts = %d; want 3", called, maxErr.Attempts)
	}
	if got := counter(t, "connector_backoff_attempts_total", labels) - before; got != 3 {
		t.Errorf("attempts_total delta = %v; want 3", got)
	}
}

func TestExecute_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad target")
	labels := map[string]string{"op": "permanent", "reason": backoff.ReasonPermanent}
	before := counter(t, "connector_backoff_giveups_total", labels)

	called := 0
	err := backoff.Execute(context.Background(), "permanent", backoff.Config{InitialInterval: time.Millisecond}, nil, func(ctx context.Context) error {
		called++
		return backoff.Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if called != 1 {
		t.Errorf("expected 1 attempt, got %d", called)
	}
	if got := counter(t, "connector_backoff_giveups_total", labels) - before; got != 1 {
		t.Errorf("giveups_total{reason=permanent} delta = %v; want 1", got)
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := backoff.Execute(ctx, "cancelled", backoff.Config{InitialInterval: 5 * time.Millisecond, Multiplier: 1, MaxInterval: 5 * time.Millisecond}, nil,
		func(ctx context.Context) error { return errors.New("down") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	var maxErr *backoff.ErrMaxRetries
	if !errors.As(err, &maxErr) || maxErr.Reason != backoff.ReasonCanceled {
		t.Fatalf("err = %v; want canceled ErrMaxRetries", err)
	}
}

func TestExecute_PerAttemptTimeout(t *testing.T) {
	cfg := fast
	cfg.MaxAttempts = 2
	cfg.PerAttemptTimeout = 10 * time.Millisecond
	err := backoff.Execute(context.Background(), "slow", cfg, nil, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v; want per-attempt deadline", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     backoff.Config
		wantErr bool
	}{
		{"zero", backoff.Config{}, false},
		{"jitterTooBig", backoff.Config{RandomizationFactor: 1.5}, true},
		{"multiplierBelowOne", backoff.Config{Multiplier: 0.5}, true},
		{"initialAboveMax", backoff.Config{InitialInterval: time.Minute, MaxInterval: time.Second}, true},
		{"negativeAttempts", backoff.Config{MaxAttempts: -1}, true},
		{"ok", backoff.Config{InitialInterval: time.Second, Multiplier: 2, MaxInterval: time.Minute, MaxAttempts: 5}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.cfg.Validate(); (err != nil) != c.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, c.wantErr)
			}
		})
	}
}
