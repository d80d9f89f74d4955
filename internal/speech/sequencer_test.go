package speech

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// fakeSynth returns "<voice>|<text>" as the audio bytes.
type fakeSynth struct{}

func (fakeSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	return []byte(voice + "|" + text), nil
}

type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *fakePlayer) Play(wav []byte) error {
	p.mu.Lock()
	p.played = append(p.played, string(wav))
	p.mu.Unlock()
	if p.started != nil {
		select {
		case p.started <- struct{}{}:
		default:
		}
		<-p.release
	}
	return nil
}

func (p *fakePlayer) Stop() {
	if p.release != nil {
		p.once.Do(func() { close(p.release) })
	}
}

func (p *fakePlayer) Played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

var cafeTurns = []domain.ConversationTurn{
	{Speaker: "A", Text: "Hi, what can I get you?"},
	{Speaker: "B", Text: "A latte, please."},
	{Speaker: "A", Text: "Coming right up."},
}

func TestPlayAllInOrder(t *testing.T) {
	player := &fakePlayer{}
	seq := NewSequencer(fakeSynth{}, player, logger.New(logger.LevelOff, nil), WithDiskWrite(false))

	var started []int
	if err := seq.PlayAll(context.Background(), "Ordering at a Cafe", cafeTurns, func(i int) {
		started = append(started, i)
	}); err != nil {
		t.Fatalf("PlayAll: %v", err)
	}

	want := []string{
		DefaultVoiceA + "|Hi, what can I get you?",
		DefaultVoiceB + "|A latte, please.",
		DefaultVoiceA + "|Coming right up.",
	}
	got := player.Played()
	if len(got) != len(want) {
		t.Fatalf("played %d clips, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("clip %d = %q, want %q", i, got[i], want[i])
		}
	}
	if len(started) != 3 || started[0] != 0 || started[2] != 2 {
		t.Fatalf("onTurn indices = %v", started)
	}
}

func TestPlayTurnPrefersClip(t *testing.T) {
	dir := t.TempDir()
	path := ClipPath(dir, "Ordering at a Cafe", 1)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("recorded"), 0o644); err != nil {
		t.Fatal(err)
	}

	player := &fakePlayer{}
	seq := NewSequencer(fakeSynth{}, player, logger.New(logger.LevelOff, nil),
		WithDiskWrite(false), WithClipDir(dir))

	if err := seq.PlayAll(context.Background(), "Ordering at a Cafe", cafeTurns, nil); err != nil {
		t.Fatalf("PlayAll: %v", err)
	}
	got := player.Played()
	if len(got) != 3 || got[1] != "recorded" {
		t.Fatalf("played = %v, want clip for turn 2", got)
	}
}

func TestStopCancelsPlayAll(t *testing.T) {
	player := &fakePlayer{started: make(chan struct{}, 1), release: make(chan struct{})}
	seq := NewSequencer(fakeSynth{}, player, logger.New(logger.LevelOff, nil), WithDiskWrite(false))

	done := make(chan error, 1)
	go func() {
		done <- seq.PlayAll(context.Background(), "cafe", cafeTurns, nil)
	}()

	select {
	case <-player.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never started")
	}
	seq.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PlayAll after Stop = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PlayAll did not return after Stop")
	}
	if got := player.Played(); len(got) != 1 {
		t.Fatalf("played %d clips after Stop, want 1: %v", len(got), got)
	}
}

func TestTurnCallbacks(t *testing.T) {
	var mu sync.Mutex
	var events []string
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}
	seq := NewSequencer(fakeSynth{}, &fakePlayer{}, logger.New(logger.LevelOff, nil),
		WithDiskWrite(false),
		WithTurnCallbacks(TurnCallbacks{
			OnStart: func(i int) { record("start") },
			OnDone:  func(i int) { record("done") },
		}))

	if err := seq.PlayTurn(context.Background(), "cafe", 0, "Hello.", DefaultVoiceA); err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}
	if len(events) != 2 || events[0] != "start" || events[1] != "done" {
		t.Fatalf("events = %v", events)
	}
}

func TestSayFlushesLowPriority(t *testing.T) {
	seq := NewSequencer(fakeSynth{}, &fakePlayer{}, logger.New(logger.LevelOff, nil), WithDiskWrite(false))
	seq.Say("idle chatter", PriorityLow)
	seq.Say("more chatter", PriorityLow)
	seq.Say("Correct.", PriorityNormal)

	if n := seq.QueueLen(); n != 1 {
		t.Fatalf("QueueLen = %d, want 1", n)
	}
	item, ok := seq.dequeue()
	if !ok || item.Text != "Correct." || item.Voice != DefaultVoice {
		t.Fatalf("dequeue = %+v, %v", item, ok)
	}
}

func TestSplitChunks(t *testing.T) {
	seq := NewSequencer(fakeSynth{}, &fakePlayer{}, logger.New(logger.LevelOff, nil),
		WithDiskWrite(false), WithChunkSize(20))

	chunks := seq.splitChunks("First sentence here. Second one now! Third?")
	if len(chunks) != 3 {
		t.Fatalf("chunks = %q", chunks)
	}
	if chunks[0] != "First sentence here." || chunks[2] != "Third?" {
		t.Fatalf("chunks = %q", chunks)
	}
}
