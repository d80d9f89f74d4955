package speech

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hammamikhairi/voicevibe/internal/logger"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Ordering at a Cafe", "ordering_at_a_cafe"},
		{"  Self-Introduction! ", "self_introduction"},
		{"Job Interview (Part 2)", "job_interview_part_2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClipPath(t *testing.T) {
	got := ClipPath("clips", "Ordering at a Cafe", 0)
	want := filepath.Join("clips", "ordering_at_a_cafe", "turn_1.wav")
	if got != want {
		t.Fatalf("ClipPath = %q, want %q", got, want)
	}
	if _, ok := loadClip(t.TempDir(), "missing", 0); ok {
		t.Fatal("loadClip found a clip that doesn't exist")
	}
}

func TestEncodeParseWAV(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767}
	format, pcm, err := parseWAV(encodeWAV(samples, CaptureSampleRate))
	if err != nil {
		t.Fatalf("parseWAV: %v", err)
	}
	if format.SampleRate != CaptureSampleRate || format.Channels != 1 || format.BitDepth != 16 {
		t.Fatalf("format = %+v", format)
	}
	if len(pcm) != len(samples)*2 {
		t.Fatalf("pcm length = %d, want %d", len(pcm), len(samples)*2)
	}

	if _, _, err := parseWAV([]byte("short")); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestToPlaybackResamples(t *testing.T) {
	samples := make([]int16, 1600) // 100ms at 16 kHz
	format, pcm, err := parseWAV(encodeWAV(samples, CaptureSampleRate))
	if err != nil {
		t.Fatal(err)
	}
	out, err := toPlayback(format, pcm)
	if err != nil {
		t.Fatalf("toPlayback: %v", err)
	}
	if got, want := len(out)/2, 2400; got != want { // 100ms at 24 kHz
		t.Fatalf("resampled to %d samples, want %d", got, want)
	}
}

func TestCleanTranscription(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "I would like a latte", "I would like a latte"},
		{"blank audio", "[BLANK_AUDIO]", ""},
		{"annotation", "(keyboard clicking) I would like a latte", "I would like a latte"},
		{"hallucination", "Thank you.", ""},
		{"timestamp", "[00:00:00.000 --> 00:00:03.000]  Hello there", "Hello there"},
		{"newlines", "Hello\nthere\r\nfriend", "Hello there friend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanTranscription(tt.in); got != tt.want {
				t.Fatalf("cleanTranscription(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"\x1b[32m[Coach] Correct.\x1b[0m", "Correct."},
		{"Correct! +10 XP", "Correct! 10 experience points"},
		{"✓ Unlocked: Small Talk", "Unlocked: Small Talk"},
		{"🔒", ""},
	}
	for _, tt := range tests {
		if got := cleanForSpeech(tt.in); got != tt.want {
			t.Fatalf("cleanForSpeech(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAudioCache(t *testing.T) {
	dir := t.TempDir()
	c := NewAudioCache(dir, true, logger.New(logger.LevelOff, nil))
	if c.Has(DefaultVoice, "hello") {
		t.Fatal("empty cache reports a hit")
	}
	c.Put(DefaultVoice, "hello", []byte("wav"))
	if got, ok := c.Get(DefaultVoice, "hello"); !ok || string(got) != "wav" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if c.Has(DefaultVoiceA, "hello") {
		t.Fatal("cache key ignores the voice")
	}

	// A fresh cache over the same directory reads from disk.
	fresh := NewAudioCache(dir, true, logger.New(logger.LevelOff, nil))
	if got, ok := fresh.Get(DefaultVoice, "hello"); !ok || string(got) != "wav" {
		t.Fatalf("disk Get = %q, %v", got, ok)
	}
}

func TestAudioCacheEvictsOldest(t *testing.T) {
	c := NewAudioCache("", false, logger.New(logger.LevelOff, nil))
	for i := 0; i <= maxMemEntries; i++ {
		c.Put(DefaultVoice, fmt.Sprintf("line %d", i), []byte("wav"))
	}
	if n := c.Len(); n != maxMemEntries {
		t.Fatalf("Len = %d, want %d", n, maxMemEntries)
	}
	if c.Has(DefaultVoice, "line 0") {
		t.Fatal("oldest entry survived eviction")
	}
	if !c.Has(DefaultVoice, fmt.Sprintf("line %d", maxMemEntries)) {
		t.Fatal("newest entry missing")
	}
	if got := voiceDir("en-US/Jenny Neural"); got != "en-US_Jenny_Neural" {
		t.Fatalf("voiceDir = %q", got)
	}
}
