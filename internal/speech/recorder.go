package speech

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

var _ domain.Transcriber = (*WhisperRecorder)(nil)

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[laughter]", "(speaking French)", etc.
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z\s]*[\)\]]`)

// RecorderOption configures the WhisperRecorder.
type RecorderOption func(*WhisperRecorder)

// WithRecordDuration sets how long one Listen call records.
func WithRecordDuration(d time.Duration) RecorderOption {
	return func(r *WhisperRecorder) { r.duration = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) RecorderOption {
	return func(r *WhisperRecorder) { r.tempDir = dir }
}

// WithInterrupt registers a function called before recording starts,
// typically Sequencer.Stop so the coach doesn't talk over the learner.
func WithInterrupt(fn func()) RecorderOption {
	return func(r *WhisperRecorder) { r.interrupt = fn }
}

// WhisperRecorder records one utterance from the microphone and
// transcribes it with a local whisper.cpp binary.
type WhisperRecorder struct {
	whisperBin string
	modelPath  string
	tempDir    string
	duration   time.Duration
	interrupt  func()
	log        *logger.Logger

	mu sync.Mutex // one recording at a time
}

// NewWhisperRecorder creates a recorder backed by whisper-cli.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
func NewWhisperRecorder(whisperBin, modelPath string, log *logger.Logger, opts ...RecorderOption) *WhisperRecorder {
	r := &WhisperRecorder{
		whisperBin: whisperBin,
		modelPath:  modelPath,
		tempDir:    ".voicevibe-stt",
		duration:   6 * time.Second,
		log:        log,
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, err := exec.LookPath(r.whisperBin); err != nil {
		log.Error("recorder: whisper binary %q not found in PATH: %v", r.whisperBin, err)
	}
	return r
}

// Listen records for the configured duration and returns the cleaned
// transcription. An empty string means nothing intelligible was heard.
func (r *WhisperRecorder) Listen(ctx context.Context) (string, error) {
	if !r.mu.TryLock() {
		return "", errors.New("recorder: already listening")
	}
	defer r.mu.Unlock()

	if r.interrupt != nil {
		r.interrupt()
	}

	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := r.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		r.whisperBin,
		r.modelPath,
		r.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		return "", errors.Join(domain.ErrRecordingUnavailable, err)
	}

	if err := t.Start(); err != nil {
		return "", errors.Join(domain.ErrRecordingUnavailable, err)
	}
	r.log.Debug("recorder: listening for %s", r.duration)

	select {
	case <-time.After(r.duration):
	case <-ctx.Done():
		t.Stop()
		wg.Wait()
		return "", ctx.Err()
	}

	t.Stop()
	wg.Wait()

	text := cleanTranscription(result)
	r.log.Debug("recorder: heard %q", text)
	return text, nil
}

var junkPatterns = []string{
	"[BLANK_AUDIO]",
	"[BLANK AUDIO]",
	"(silence)",
	"[silence]",
	"(no speech)",
	"[no speech]",
	"[Music]",
	"(music)",
	"(typing)",
	"(breathing)",
	"(coughing)",
	"(laughing)",
	"(background noise)",
	"(inaudible)",
	"(unintelligible)",
	"(applause)",
}

// Whole-utterance hallucinations whisper produces on silence.
var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"thank you for watching.",
	"the end.",
}

// cleanTranscription strips whisper artifacts like "[BLANK_AUDIO]" and
// environmental annotations, and discards known silence hallucinations.
func cleanTranscription(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	s = strings.TrimSpace(s)

	// Whisper timestamp prefix: "[00:00:00.000 --> 00:00:05.000]".
	if strings.HasPrefix(s, "[") {
		if idx := strings.Index(s, "]"); idx != -1 && idx < 40 && strings.Contains(s[:idx], "-->") {
			s = strings.TrimSpace(s[idx+1:])
		}
	}

	for _, j := range junkPatterns {
		s = strings.ReplaceAll(s, j, "")
		s = strings.ReplaceAll(s, strings.ToLower(j), "")
		s = strings.ReplaceAll(s, strings.ToUpper(j), "")
	}
	s = envAnnotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if h == lower {
			return ""
		}
	}
	return s
}
