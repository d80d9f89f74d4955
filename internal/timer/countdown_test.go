package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/logger"
)

func TestCountdownExpires(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	expired := make(chan struct{})

	var mu sync.Mutex
	var ticks []time.Duration

	c := NewCountdown(50*time.Millisecond, log,
		WithTickInterval(10*time.Millisecond),
		OnTick(func(d time.Duration) {
			mu.Lock()
			ticks = append(ticks, d)
			mu.Unlock()
		}),
		OnExpire(func() { close(expired) }),
	)
	c.Start(context.Background())

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not expire")
	}

	if c.Remaining() != 0 {
		t.Fatalf("expected 0 remaining, got %s", c.Remaining())
	}
	if c.Running() {
		t.Fatal("countdown still running after expiry")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 5 {
		t.Fatalf("expected 5 ticks, got %d", len(ticks))
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] >= ticks[i-1] {
			t.Fatalf("ticks not decreasing: %v", ticks)
		}
	}
}

func TestCountdownPauseFreezes(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	c := NewCountdown(time.Minute, log, WithTickInterval(5*time.Millisecond))
	c.Start(context.Background())
	defer c.Stop()

	c.Pause()
	frozen := c.Remaining()
	time.Sleep(40 * time.Millisecond)
	if got := c.Remaining(); got != frozen {
		t.Fatalf("remaining changed while paused: %s -> %s", frozen, got)
	}

	c.Resume()
	time.Sleep(40 * time.Millisecond)
	if c.Remaining() >= frozen {
		t.Fatal("countdown did not resume")
	}
}

func TestCountdownStopTwice(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	fired := false
	c := NewCountdown(20*time.Millisecond, log,
		WithTickInterval(5*time.Millisecond),
		OnExpire(func() { fired = true }),
	)
	c.Start(context.Background())
	c.Stop()
	c.Stop()

	time.Sleep(50 * time.Millisecond)
	if fired {
		t.Fatal("expire fired after stop")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "0:30"},
		{90 * time.Second, "1:30"},
		{0, "0:00"},
		{-time.Second, "0:00"},
		{1500 * time.Millisecond, "0:02"},
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.in); got != tt.want {
			t.Fatalf("FormatRemaining(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
