package fluency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

type fakeCapture struct {
	mu     sync.Mutex
	path   string
	paused bool
	stops  int
}

func (c *fakeCapture) Start(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = path
	return nil
}

func (c *fakeCapture) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *fakeCapture) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

func (c *fakeCapture) Stop() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return c.path, nil
}

func TestRecorderLifecycle(t *testing.T) {
	capture := &fakeCapture{}
	r := NewRecorder(capture, logger.New(logger.LevelOff, nil), WithMaxDuration(time.Hour))
	ctx := context.Background()

	if r.State() != StateIdle {
		t.Fatalf("initial state = %s", r.State())
	}
	if err := r.Pause(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Pause while idle: %v", err)
	}
	if err := r.Start(ctx, "attempt.wav"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(ctx, "other.wav"); err == nil {
		t.Fatal("second Start should fail")
	}
	if err := r.Pause(); err != nil || r.State() != StatePaused || !capture.paused {
		t.Fatalf("Pause: %v, state %s", err, r.State())
	}
	if err := r.Resume(); err != nil || r.State() != StateRecording || capture.paused {
		t.Fatalf("Resume: %v, state %s", err, r.State())
	}

	rec, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.AudioPath != "attempt.wav" || r.State() != StateStopped {
		t.Fatalf("rec = %+v, state %s", rec, r.State())
	}
	if last, ok := r.Last(); !ok || last != rec {
		t.Fatalf("Last = %+v, %v", last, ok)
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("second Stop: %v", err)
	}

	r.Reset()
	if r.State() != StateIdle {
		t.Fatalf("state after Reset = %s", r.State())
	}
	if _, ok := r.Last(); ok {
		t.Fatal("Reset kept the last recording")
	}
}

func TestRecorderAutoStopsAtZero(t *testing.T) {
	capture := &fakeCapture{}
	stopped := make(chan Recording, 1)
	r := NewRecorder(capture, logger.New(logger.LevelOff, nil),
		WithMaxDuration(50*time.Millisecond),
		WithTick(10*time.Millisecond),
		OnAutoStop(func(rec Recording) { stopped <- rec }),
	)
	if err := r.Start(context.Background(), "auto.wav"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case rec := <-stopped:
		if rec.Duration != 50*time.Millisecond || rec.AudioPath != "auto.wav" {
			t.Fatalf("auto-stopped recording = %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not auto-stop")
	}
	if r.State() != StateStopped || capture.stops != 1 {
		t.Fatalf("state %s, stops %d", r.State(), capture.stops)
	}
}

func TestRecorderPausedTimeDoesNotCount(t *testing.T) {
	r := NewRecorder(&fakeCapture{}, logger.New(logger.LevelOff, nil),
		WithMaxDuration(time.Hour),
		WithTick(10*time.Millisecond),
	)
	if err := r.Start(context.Background(), "p.wav"); err != nil {
		t.Fatal(err)
	}
	if err := r.Pause(); err != nil {
		t.Fatal(err)
	}
	before := r.Remaining()
	time.Sleep(60 * time.Millisecond)
	if after := r.Remaining(); after != before {
		t.Fatalf("remaining moved while paused: %s -> %s", before, after)
	}
	rec, err := r.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Duration != time.Hour-before {
		t.Fatalf("duration = %s, want %s", rec.Duration, time.Hour-before)
	}
}

func TestRecorderWithoutMicrophone(t *testing.T) {
	r := NewRecorder(nil, logger.New(logger.LevelOff, nil))
	if err := r.Start(context.Background(), "x.wav"); !errors.Is(err, domain.ErrRecordingUnavailable) {
		t.Fatalf("Start without capture: %v", err)
	}
	if r.State() != StateIdle {
		t.Fatalf("state = %s", r.State())
	}
}

func TestTake(t *testing.T) {
	capture := &fakeCapture{}
	recording := false
	take := NewTake(capture, func() bool { return recording })

	if _, err := take.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("stop before start: %v", err)
	}
	if err := take.Start("phrase-1.wav"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !take.Active() {
		t.Fatal("take not active after start")
	}
	if err := take.Start("phrase-2.wav"); !errors.Is(err, ErrMicBusy) {
		t.Fatalf("second start: %v", err)
	}
	path, err := take.Stop()
	if err != nil || path != "phrase-1.wav" || take.Active() {
		t.Fatalf("stop = %q, %v, active=%v", path, err, take.Active())
	}

	recording = true
	if err := take.Start("turn-2.wav"); !errors.Is(err, ErrMicBusy) {
		t.Fatalf("start while the recorder holds the mic: %v", err)
	}
	if capture.stops != 1 {
		t.Fatalf("capture stopped %d times, want 1", capture.stops)
	}

	if err := NewTake(nil, nil).Start("x.wav"); !errors.Is(err, domain.ErrRecordingUnavailable) {
		t.Fatalf("no mic: %v", err)
	}
}
