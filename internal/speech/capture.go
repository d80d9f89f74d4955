package speech

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Mic records the default capture device to a 16 kHz mono WAV file.
// Samples arriving while paused are dropped, so a paused stretch leaves
// no gap in the file.
type Mic struct {
	log *logger.Logger

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
	path    string
	samples []int16
	paused  bool
}

// NewMic creates a microphone recorder. No device is opened until Start.
func NewMic(log *logger.Logger) *Mic {
	return &Mic{log: log}
}

// Start opens the capture device and begins buffering samples that
// Stop will write to path.
func (m *Mic) Start(path string) error {
	m.mu.Lock()
	if m.device != nil {
		m.mu.Unlock()
		return errors.New("mic: already recording")
	}
	m.mu.Unlock()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(_ string) {})
	if err != nil {
		return fmt.Errorf("mic: init context: %w", err)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = CaptureSampleRate
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = 1
	devCfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, _ uint32) {
			m.onData(raw)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, devCfg, callbacks)
	if err != nil {
		release(nil, mctx)
		return fmt.Errorf("mic: init device: %w", err)
	}

	m.mu.Lock()
	m.mctx = mctx
	m.device = device
	m.path = path
	m.samples = m.samples[:0]
	m.paused = false
	m.mu.Unlock()

	// The data callback takes the lock, so start without holding it.
	if err := device.Start(); err != nil {
		m.mu.Lock()
		device, mctx := m.detachLocked()
		m.mu.Unlock()
		release(device, mctx)
		return fmt.Errorf("mic: start: %w", err)
	}
	m.log.Debug("mic: capture started (rate=%d) -> %s", CaptureSampleRate, path)
	return nil
}

func (m *Mic) onData(raw []byte) {
	if len(raw) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused || m.device == nil {
		return
	}
	n := len(raw) / 2
	for i := 0; i < n; i++ {
		m.samples = append(m.samples, int16(binary.LittleEndian.Uint16(raw[i*2:i*2+2])))
	}
}

// Pause stops buffering without closing the device.
func (m *Mic) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

// Resume continues buffering after Pause.
func (m *Mic) Resume() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
}

// Stop closes the device and writes the buffered audio. It returns the
// file path.
func (m *Mic) Stop() (string, error) {
	m.mu.Lock()
	if m.device == nil {
		m.mu.Unlock()
		return "", errors.New("mic: not recording")
	}
	path := m.path
	samples := m.samples
	m.samples = nil
	device, mctx := m.detachLocked()
	m.mu.Unlock()

	release(device, mctx)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mic: %w", err)
	}
	if err := os.WriteFile(path, encodeWAV(samples, CaptureSampleRate), 0o644); err != nil {
		return "", fmt.Errorf("mic: write %s: %w", path, err)
	}
	m.log.Debug("mic: wrote %d samples to %s", len(samples), path)
	return path, nil
}

// Recording reports whether a capture is in progress.
func (m *Mic) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device != nil
}

// detachLocked clears the device fields so the data callback ignores
// late buffers. Teardown happens outside the lock since Uninit waits
// for the callback.
func (m *Mic) detachLocked() (*malgo.Device, *malgo.AllocatedContext) {
	device, mctx := m.device, m.mctx
	m.device, m.mctx = nil, nil
	return device, mctx
}

func release(device *malgo.Device, mctx *malgo.AllocatedContext) {
	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if mctx != nil {
		_ = mctx.Uninit()
		mctx.Free()
	}
}
