package fluency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
	"github.com/hammamikhairi/voicevibe/internal/timer"
)

// MaxRecordingDuration is the length of one fluency attempt.
const MaxRecordingDuration = 30 * time.Second

// ErrNotRecording is returned when a transition needs an active recording.
var ErrNotRecording = errors.New("fluency: not recording")

// Capture is the microphone. speech.Mic implements it.
type Capture interface {
	Start(path string) error
	Pause()
	Resume()
	Stop() (string, error)
}

// State is the recorder's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopped
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Recording is a finished attempt ready to submit.
type Recording struct {
	AudioPath string
	Duration  time.Duration
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMaxDuration overrides the 30-second limit.
func WithMaxDuration(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.max = d }
}

// WithTick sets the countdown resolution.
func WithTick(d time.Duration) RecorderOption {
	return func(r *Recorder) { r.tick = d }
}

// OnRemaining is called on every countdown tick.
func OnRemaining(fn func(remaining time.Duration)) RecorderOption {
	return func(r *Recorder) { r.onTick = fn }
}

// OnAutoStop is called when the countdown stops the recording at zero.
// The caller submits from here.
func OnAutoStop(fn func(Recording)) RecorderOption {
	return func(r *Recorder) { r.onAutoStop = fn }
}

// Recorder drives one fluency recording: idle, recording, paused,
// stopped. Time only counts down while recording.
type Recorder struct {
	capture    Capture
	log        *logger.Logger
	max        time.Duration
	tick       time.Duration
	onTick     func(time.Duration)
	onAutoStop func(Recording)

	mu        sync.Mutex
	state     State
	countdown *timer.Countdown
	last      *Recording
}

// NewRecorder creates an idle recorder. capture may be nil when no
// microphone is available; Start then fails.
func NewRecorder(capture Capture, log *logger.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		capture: capture,
		log:     log,
		max:     MaxRecordingDuration,
		tick:    time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins recording to path.
func (r *Recorder) Start(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording || r.state == StatePaused {
		return errors.New("fluency: already recording")
	}
	if r.capture == nil {
		return domain.ErrRecordingUnavailable
	}
	if err := r.capture.Start(path); err != nil {
		return fmt.Errorf("fluency: start recording: %w", err)
	}

	r.countdown = timer.NewCountdown(r.max, r.log,
		timer.WithTickInterval(r.tick),
		timer.OnTick(func(remaining time.Duration) {
			if r.onTick != nil {
				r.onTick(remaining)
			}
		}),
		timer.OnExpire(r.expire),
	)
	r.countdown.Start(ctx)
	r.state = StateRecording
	r.last = nil
	r.log.Info("recording started: %s", path)
	return nil
}

// Pause freezes both the microphone and the countdown.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return ErrNotRecording
	}
	r.capture.Pause()
	r.countdown.Pause()
	r.state = StatePaused
	return nil
}

// Resume continues a paused recording.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return ErrNotRecording
	}
	r.capture.Resume()
	r.countdown.Resume()
	r.state = StateRecording
	return nil
}

// Stop ends the recording and returns it. The duration is the time
// actually recorded: the limit minus what is left on the countdown.
func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked()
}

func (r *Recorder) stopLocked() (Recording, error) {
	if r.state != StateRecording && r.state != StatePaused {
		return Recording{}, ErrNotRecording
	}
	r.countdown.Stop()
	elapsed := r.max - r.countdown.Remaining()

	path, err := r.capture.Stop()
	r.state = StateStopped
	if err != nil {
		return Recording{}, fmt.Errorf("fluency: stop recording: %w", err)
	}
	rec := Recording{AudioPath: path, Duration: elapsed}
	r.last = &rec
	r.log.Info("recording stopped after %s", elapsed)
	return rec, nil
}

func (r *Recorder) expire() {
	r.mu.Lock()
	rec, err := r.stopLocked()
	r.mu.Unlock()
	if err != nil {
		if !errors.Is(err, ErrNotRecording) {
			r.log.Error("auto-stop: %v", err)
		}
		return
	}
	if r.onAutoStop != nil {
		r.onAutoStop(rec)
	}
}

// Reset discards any recording in progress and returns to idle.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRecording || r.state == StatePaused {
		if _, err := r.stopLocked(); err != nil {
			r.log.Warn("reset: %v", err)
		}
	}
	r.state = StateIdle
	r.last = nil
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Active reports whether a recording holds the microphone.
func (r *Recorder) Active() bool {
	s := r.State()
	return s == StateRecording || s == StatePaused
}

// Remaining returns the time left on the countdown.
func (r *Recorder) Remaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countdown == nil {
		return r.max
	}
	return r.countdown.Remaining()
}

// Last returns the most recent stopped recording, if any.
func (r *Recorder) Last() (Recording, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Recording{}, false
	}
	return *r.last, true
}
