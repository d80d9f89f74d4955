// Package speech provides text-to-speech, audio playback, microphone
// capture, and speech-to-text implementations.
package speech

import (
	"context"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Synthesizer = (*NoOp)(nil)
	_ domain.AudioPlayer = (*NoOp)(nil)
	_ domain.Transcriber = (*NoOp)(nil)
)

// NoOp stands in for every audio port when voice is disabled.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a no-op audio provider.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Synthesize returns ErrNotImplemented.
func (n *NoOp) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	n.log.Debug("speech no-op: would say %q", text)
	return nil, domain.ErrNotImplemented
}

// Play does nothing.
func (n *NoOp) Play(wav []byte) error { return nil }

// Stop does nothing.
func (n *NoOp) Stop() {}

// Listen returns ErrNotImplemented.
func (n *NoOp) Listen(ctx context.Context) (string, error) {
	return "", domain.ErrNotImplemented
}
