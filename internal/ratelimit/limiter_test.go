package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/botworks/zohobridge/internal/observe"
)

// fakeClock drives the limiter deterministically: sleeps advance the
// clock instead of blocking.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := New(cfg, observe.Nop)
	l.now = func() time.Time { return clock.now }
	l.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock.sleeps = append(clock.sleeps, d)
		clock.now = clock.now.Add(d)
		return nil
	}
	return l, clock
}

func TestAcquire_FirstCallImmediate(t *testing.T) {
	l, clock := newFakeLimiter(DefaultConfig())
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("first call should not wait, slept %v", clock.sleeps)
	}
}

func TestAcquire_EnforcesMinSpacing(t *testing.T) {
	l, clock := newFakeLimiter(Config{MinSpacing: time.Second, MaxCallsPerWindow: 90, Window: 2 * time.Minute})

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	clock.now = clock.now.Add(300 * time.Millisecond)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire 2: %v", err)
	}

	if len(clock.sleeps) != 1 || clock.sleeps[0] != 700*time.Millisecond {
		t.Fatalf("expected one 700ms spacing wait, got %v", clock.sleeps)
	}
}

func TestAcquire_WindowBudgetSuspendsUntilBoundary(t *testing.T) {
	cfg := Config{MinSpacing: 0, MaxCallsPerWindow: 3, Window: 2 * time.Minute}
	l, clock := newFakeLimiter(cfg)
	ctx := context.Background()

	start := clock.now
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("in-budget calls should not wait, slept %v", clock.sleeps)
	}

	// Budget exhausted: the fourth call waits out the rest of the window.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire 4: %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 2*time.Minute {
		t.Fatalf("expected a wait to the window boundary, got %v", clock.sleeps)
	}
	if got := clock.now.Sub(start); got != 2*time.Minute {
		t.Fatalf("clock should sit at the window boundary, advanced %v", got)
	}

	// After the boundary the window resets and the budget is fresh.
	l.mu.Lock()
	if l.count != 1 {
		l.mu.Unlock()
		t.Fatalf("expected request count reset to 1 after boundary, got %d", l.count)
	}
	l.mu.Unlock()
}

func TestAcquire_WindowResetAfterIdle(t *testing.T) {
	cfg := Config{MinSpacing: 0, MaxCallsPerWindow: 2, Window: 2 * time.Minute}
	l, clock := newFakeLimiter(cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}

	// Idle past the window: next call proceeds without waiting.
	clock.now = clock.now.Add(3 * time.Minute)
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("acquire after idle: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("call after idle window should not wait, slept %v", clock.sleeps)
	}
}

func TestAcquire_ContextCancelledDuringWait(t *testing.T) {
	l, clock := newFakeLimiter(Config{MinSpacing: time.Second, MaxCallsPerWindow: 90, Window: 2 * time.Minute})

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Acquire(ctx)
	if err == nil {
		t.Fatal("expected context error during spacing wait")
	}
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	_ = clock
}
