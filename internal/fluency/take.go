package fluency

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hammamikhairi/voicevibe/internal/domain"
)

// ErrMicBusy is returned when the microphone is already in use.
var ErrMicBusy = errors.New("fluency: microphone busy")

// Take is one untimed recording, used for phrase and turn submissions.
// It shares the microphone with the fluency Recorder; busy reports
// whether the Recorder holds it.
type Take struct {
	mic  Capture
	busy func() bool

	mu   sync.Mutex
	path string
}

// NewTake wraps mic. busy may be nil.
func NewTake(mic Capture, busy func() bool) *Take {
	return &Take{mic: mic, busy: busy}
}

// Start begins recording to path.
func (t *Take) Start(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mic == nil {
		return domain.ErrRecordingUnavailable
	}
	if t.path != "" || (t.busy != nil && t.busy()) {
		return ErrMicBusy
	}
	if err := t.mic.Start(path); err != nil {
		return fmt.Errorf("fluency: start take: %w", err)
	}
	t.path = path
	return nil
}

// Stop ends the take and returns the written file.
func (t *Take) Stop() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.path == "" {
		return "", ErrNotRecording
	}
	t.path = ""
	path, err := t.mic.Stop()
	if err != nil {
		return "", fmt.Errorf("fluency: stop take: %w", err)
	}
	return path, nil
}

// Active reports whether a take is recording.
func (t *Take) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path != ""
}
