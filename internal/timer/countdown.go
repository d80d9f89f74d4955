// Package timer implements the background countdown that limits fluency
// recordings and the daily practice reminder.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Option configures a countdown.
type Option func(*Countdown)

// WithTickInterval sets how often the countdown decrements.
func WithTickInterval(d time.Duration) Option {
	return func(c *Countdown) {
		c.tickInterval = d
	}
}

// OnTick registers a callback invoked with the remaining time after each tick.
func OnTick(fn func(remaining time.Duration)) Option {
	return func(c *Countdown) {
		c.onTick = fn
	}
}

// OnExpire registers a callback invoked once when the countdown hits zero.
func OnExpire(fn func()) Option {
	return func(c *Countdown) {
		c.onExpire = fn
	}
}

// Countdown runs in the background and counts a fixed duration down to
// zero. Time only elapses while it is running and not paused.
type Countdown struct {
	total        time.Duration
	tickInterval time.Duration
	onTick       func(time.Duration)
	onExpire     func()
	log          *logger.Logger

	mu        sync.Mutex
	remaining time.Duration
	running   bool
	paused    bool
	cancel    context.CancelFunc
}

// NewCountdown creates a stopped countdown of total duration.
func NewCountdown(total time.Duration, log *logger.Logger, opts ...Option) *Countdown {
	c := &Countdown{
		total:        total,
		remaining:    total,
		tickInterval: 1 * time.Second,
		log:          log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start resets the countdown to its full duration and begins ticking.
// Non-blocking.
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.log.Warn("countdown already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true
	c.paused = false
	c.remaining = c.total

	go c.loop(childCtx)
	c.log.Debug("countdown started (%s, tick=%s)", c.total, c.tickInterval)
}

// Pause freezes the remaining time.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume continues a paused countdown.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// Stop halts the countdown. Safe to call more than once.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.cancel()
	c.running = false
	c.log.Debug("countdown stopped with %s left", c.remaining)
}

// Remaining returns the time left.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether the countdown is ticking or paused.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Countdown) loop(ctx context.Context) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.tick(ctx) {
				return
			}
		}
	}
}

// tick decrements once. It reports true when the countdown expired.
func (c *Countdown) tick(ctx context.Context) bool {
	c.mu.Lock()
	if c.paused || !c.running || ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	c.remaining -= c.tickInterval
	if c.remaining < 0 {
		c.remaining = 0
	}
	remaining := c.remaining
	expired := remaining == 0
	if expired {
		c.running = false
		c.cancel()
	}
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(remaining)
	}
	if expired {
		c.log.Debug("countdown expired")
		if c.onExpire != nil {
			c.onExpire()
		}
	}
	return expired
}

// FormatRemaining renders a countdown as m:ss.
func FormatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	if d < 0 {
		d = 0
	}
	totalSec := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", totalSec/60, totalSec%60)
}
