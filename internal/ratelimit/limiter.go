// Package ratelimit paces outbound calls to stay under the upstream
// API quota: a minimum spacing between calls plus a hard per-window
// call budget.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/botworks/zohobridge/internal/observe"
)

// Config sets the pacing rules for one upstream target.
type Config struct {
	MinSpacing        time.Duration
	MaxCallsPerWindow int
	Window            time.Duration
}

// DefaultConfig matches the Zoho Projects quota: at most 90 calls per
// rolling 2 minutes, spaced at least a second apart.
func DefaultConfig() Config {
	return Config{
		MinSpacing:        time.Second,
		MaxCallsPerWindow: 90,
		Window:            2 * time.Minute,
	}
}

// Limiter is shared process-wide; one instance guards one upstream
// target across all conversations.
type Limiter struct {
	cfg Config
	obs observe.Observer

	mu          sync.Mutex
	windowStart time.Time
	lastCall    time.Time
	count       int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a limiter. A nil observer discards wait events.
func New(cfg Config, obs observe.Observer) *Limiter {
	if obs == nil {
		obs = observe.Nop
	}
	return &Limiter{
		cfg:   cfg,
		obs:   obs,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Acquire blocks until the next call is allowed to proceed, then records
// it. Returns the context error if the caller is cancelled mid-wait.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()

		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.cfg.Window {
			l.windowStart = now
			l.count = 0
		}

		var wait time.Duration
		if l.count >= l.cfg.MaxCallsPerWindow {
			wait = l.windowStart.Add(l.cfg.Window).Sub(now)
		} else if !l.lastCall.IsZero() {
			if d := l.cfg.MinSpacing - now.Sub(l.lastCall); d > 0 {
				wait = d
			}
		}

		if wait <= 0 {
			l.lastCall = now
			l.count++
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		l.obs.RateLimitWait(wait)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
