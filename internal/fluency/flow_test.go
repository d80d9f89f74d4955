package fluency

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

type fakePractice struct {
	domain.PracticeRepository
	sessionID string
	submitErr error
	eval      *domain.FluencyEvaluation
	byTopic   map[string][]domain.PracticePrompt
	random    *domain.PracticePrompt
	randomErr error
	lookups   int
	promptIDs []string // as received by SubmitRecording
}

func (f *fakePractice) PromptsByCategory(_ context.Context, category string) ([]domain.PracticePrompt, error) {
	f.lookups++
	return f.byTopic[category], nil
}

func (f *fakePractice) RandomPrompt(context.Context) (*domain.PracticePrompt, error) {
	if f.randomErr != nil {
		return nil, f.randomErr
	}
	if f.random == nil {
		return &domain.PracticePrompt{ID: "p-random"}, nil
	}
	return f.random, nil
}

func (f *fakePractice) SubmitRecording(_ context.Context, promptID, audioPath string) (string, error) {
	f.promptIDs = append(f.promptIDs, promptID)
	return f.sessionID, f.submitErr
}

func (f *fakePractice) Evaluation(_ context.Context, sessionID string) (*domain.FluencyEvaluation, error) {
	if f.eval == nil {
		return nil, domain.ErrNotFound
	}
	return f.eval, nil
}

type promptScore struct {
	index, score int
	sessionID    string
}

type fakeJourney struct {
	domain.JourneyRepository
	sub       *domain.FluencySubmission
	submitErr error
	scores    []promptScore
	duration  time.Duration
}

func (f *fakeJourney) SubmitFluencyRecording(_ context.Context, topicID, audioPath string, d time.Duration) (*domain.FluencySubmission, error) {
	f.duration = d
	return f.sub, f.submitErr
}

func (f *fakeJourney) SubmitFluencyPromptScore(_ context.Context, topicID string, promptIndex, score int, sessionID string) (*domain.PromptScoreResult, error) {
	f.scores = append(f.scores, promptScore{promptIndex, score, sessionID})
	return &domain.PromptScoreResult{Success: true}, nil
}

type fakeGamification struct {
	domain.GamificationRepository
	streakCalls int
}

func (f *fakeGamification) UpdateStreak(context.Context) (int, error) {
	f.streakCalls++
	return f.streakCalls, nil
}

type fakeAttempts struct {
	domain.AttemptStore
	mu     sync.Mutex
	stored map[string][]domain.FluencyAttempt
}

func (f *fakeAttempts) AppendFluency(_ context.Context, topicID string, a domain.FluencyAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = make(map[string][]domain.FluencyAttempt)
	}
	f.stored[topicID] = append([]domain.FluencyAttempt{a}, f.stored[topicID]...)
	return nil
}

func (f *fakeAttempts) FluencyAttempts(_ context.Context, userID, topicID string) ([]domain.FluencyAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FluencyAttempt
	for _, a := range f.stored[topicID] {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeLedger struct {
	xp     map[string]int
	active int
}

func (f *fakeLedger) AddXP(_ context.Context, userKey, source string, points int) error {
	if f.xp == nil {
		f.xp = make(map[string]int)
	}
	f.xp[source] += points
	return nil
}

func (f *fakeLedger) MarkActive(context.Context, string, time.Time) error {
	f.active++
	return nil
}

var cafe = &domain.Topic{ID: "t2", Title: "Ordering at a Cafe"}

func newTestFlow(p *fakePractice, j *fakeJourney, store *fakeAttempts, ledger *fakeLedger) (*Flow, *fakeGamification) {
	g := &fakeGamification{}
	clock := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local) }
	return NewFlow(p, j, g, store, logger.New(logger.LevelOff, nil),
		WithLedger(ledger),
		WithUserID(func() string { return "u1" }),
		WithClock(clock),
	), g
}

func TestSubmitSuccess(t *testing.T) {
	p := &fakePractice{sessionID: "s1", eval: &domain.FluencyEvaluation{Transcript: "draft", Feedback: "server"}}
	j := &fakeJourney{sub: &domain.FluencySubmission{
		SessionID:     "j1",
		Transcription: words(70),
		Feedback:      "Nice pace.",
		Suggestions:   []string{"Link your ideas."},
	}}
	store := &fakeAttempts{}
	ledger := &fakeLedger{}
	flow, g := newTestFlow(p, j, store, ledger)

	res, err := flow.Submit(context.Background(), cafe, Recording{AudioPath: "a.wav", Duration: 30 * time.Second})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Fallback pauses [0.8, 1.2]: one long pause costs 3.
	if res.Score != 97 || !res.Completed || res.XP != 50 || res.Err != "" {
		t.Fatalf("result = %+v", res)
	}
	if res.Feedback != "Nice pace." || len(res.Suggestions) != 1 {
		t.Fatalf("feedback = %q, suggestions = %v", res.Feedback, res.Suggestions)
	}
	if j.duration != 30*time.Second {
		t.Fatalf("journey got duration %s", j.duration)
	}
	if len(j.scores) != 1 || j.scores[0] != (promptScore{0, 97, "j1"}) {
		t.Fatalf("prompt scores = %+v", j.scores)
	}
	if g.streakCalls != 1 {
		t.Fatalf("streak calls = %d, want 1", g.streakCalls)
	}
	if ledger.xp[xpSource] != 50 || ledger.active != 1 {
		t.Fatalf("ledger = %+v", ledger)
	}

	attempts, err := flow.Attempts(context.Background(), "u1", "t2")
	if err != nil || len(attempts) != 1 {
		t.Fatalf("Attempts = %v, %v", attempts, err)
	}
	a := attempts[0]
	if a.SessionID != "s1" || a.OverallScore != 97 || a.Transcript != words(70) || a.AudioPath != "a.wav" {
		t.Fatalf("stored attempt = %+v", a)
	}
}

func TestSubmitJourneyFailureFallsBack(t *testing.T) {
	p := &fakePractice{sessionID: "s1", eval: &domain.FluencyEvaluation{Transcript: words(35), Pauses: []float64{}}}
	j := &fakeJourney{submitErr: errors.New("502 bad gateway")}
	store := &fakeAttempts{}
	ledger := &fakeLedger{}
	flow, _ := newTestFlow(p, j, store, ledger)

	res, err := flow.Submit(context.Background(), cafe, Recording{AudioPath: "a.wav", Duration: 15 * time.Second})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Err != "Failed to submit to server: 502 bad gateway" {
		t.Fatalf("Err = %q", res.Err)
	}
	if res.Score != 81 || res.Completed || res.XP != 0 {
		t.Fatalf("result = %+v", res)
	}
	if len(j.scores) != 0 || ledger.xp[xpSource] != 0 {
		t.Fatal("fallback must not sync a score or award XP")
	}
	if got := store.stored["t2"]; len(got) != 1 || got[0].OverallScore != 81 {
		t.Fatalf("stored = %+v", got)
	}
}

func TestSubmitPracticeFailureUsesLocalID(t *testing.T) {
	p := &fakePractice{submitErr: errors.New("timeout")}
	store := &fakeAttempts{}
	flow, g := newTestFlow(p, &fakeJourney{}, store, &fakeLedger{})

	res, err := flow.Submit(context.Background(), cafe, Recording{AudioPath: "a.wav", Duration: 10 * time.Second})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.HasPrefix(res.Err, "Failed to submit to server: ") {
		t.Fatalf("Err = %q", res.Err)
	}
	if res.Attempt.SessionID == "" {
		t.Fatal("attempt has no session id")
	}
	if g.streakCalls != 0 {
		t.Fatal("streak updated without a server session")
	}
	if len(store.stored["t2"]) != 1 {
		t.Fatal("attempt not stored")
	}
}

func TestSubmitMissingSessionID(t *testing.T) {
	flow, _ := newTestFlow(&fakePractice{}, &fakeJourney{}, &fakeAttempts{}, &fakeLedger{})
	res, err := flow.Submit(context.Background(), cafe, Recording{AudioPath: "a.wav"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Err != "Failed to submit to server: missing session id from server" {
		t.Fatalf("Err = %q", res.Err)
	}
}

func TestSubmitValidation(t *testing.T) {
	flow, _ := newTestFlow(&fakePractice{}, &fakeJourney{}, &fakeAttempts{}, &fakeLedger{})
	if _, err := flow.Submit(context.Background(), nil, Recording{AudioPath: "a.wav"}); !errors.Is(err, domain.ErrNoTopic) {
		t.Fatalf("nil topic: %v", err)
	}
	if _, err := flow.Submit(context.Background(), cafe, Recording{}); !errors.Is(err, domain.ErrRecordingUnavailable) {
		t.Fatalf("no audio: %v", err)
	}
}

func TestSubmitUsesResolvedPrompt(t *testing.T) {
	tests := []struct {
		name    string
		byTopic map[string][]domain.PracticePrompt
		want    string
	}{
		{"category match", map[string][]domain.PracticePrompt{cafe.Title: {{ID: "p-cafe"}, {ID: "p-other"}}}, "p-cafe"},
		{"random fallback", nil, "p-random"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePractice{sessionID: "s1", byTopic: tt.byTopic}
			j := &fakeJourney{sub: &domain.FluencySubmission{SessionID: "j1", Transcription: words(40)}}
			flow, _ := newTestFlow(p, j, &fakeAttempts{}, &fakeLedger{})
			ctx := context.Background()

			id, err := flow.Prepare(ctx, cafe)
			if err != nil || id != tt.want {
				t.Fatalf("Prepare = %q, %v; want %q", id, err, tt.want)
			}
			for i := 0; i < 2; i++ {
				if _, err := flow.Submit(ctx, cafe, Recording{AudioPath: "a.wav", Duration: 20 * time.Second}); err != nil {
					t.Fatalf("Submit: %v", err)
				}
			}
			if len(p.promptIDs) != 2 || p.promptIDs[0] != tt.want || p.promptIDs[1] != tt.want {
				t.Fatalf("SubmitRecording got prompt ids %v, want %q", p.promptIDs, tt.want)
			}
			if p.lookups != 1 {
				t.Fatalf("prompt resolved %d times, want once", p.lookups)
			}
		})
	}
}

func TestSubmitWithoutPromptFallsBack(t *testing.T) {
	p := &fakePractice{sessionID: "s1", randomErr: errors.New("503")}
	j := &fakeJourney{}
	flow, _ := newTestFlow(p, j, &fakeAttempts{}, &fakeLedger{})

	res, err := flow.Submit(context.Background(), cafe, Recording{AudioPath: "a.wav", Duration: 20 * time.Second})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(p.promptIDs) != 0 {
		t.Fatalf("recording submitted without a prompt: %v", p.promptIDs)
	}
	if !strings.Contains(res.Err, "503") || res.XP != 0 {
		t.Fatalf("result = %+v", res)
	}
}
