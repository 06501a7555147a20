package run

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunClock calls Tick every interval until ctx is done, then returns
// ctx.Err(). Ticks after the run finished are ignored by the tracker.
func (t *Tracker) RunClock(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("clock interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Clock runs a tracker's RunClock in the background.
type Clock struct {
	tracker  *Tracker
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClock creates a clock ticking t once per interval.
func NewClock(t *Tracker, interval time.Duration) *Clock {
	return &Clock{tracker: t, interval: interval, logger: t.logger}
}

// Start launches the ticking goroutine.
func (c *Clock) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return fmt.Errorf("clock already started")
	}
	if c.interval <= 0 {
		return fmt.Errorf("clock interval must be positive, got %s", c.interval)
	}

	clockCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		_ = c.tracker.RunClock(clockCtx, c.interval)
	}(c.done)

	c.logger.Debug("run clock started",
		slog.String("run_id", c.tracker.RunID()),
		slog.Duration("interval", c.interval),
	)
	return nil
}

// Stop halts the goroutine and waits for it to exit. Stopping a clock that
// is not running is a no-op.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	c.logger.Debug("run clock stopped", slog.String("run_id", c.tracker.RunID()))
}
