package journey

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

type fakeRepo struct {
	domain.JourneyRepository
	mu         sync.Mutex
	topics     []domain.Topic
	profile    domain.UserProfile
	topicsErr  error
	visited    []string
	completed  []string
	phrase     *domain.PhraseResult
	phraseErr  error
	recordings []domain.PhraseRecording
	recErr     error
	turn       *domain.TurnResult
	turnErr    error
	turnRoles  []string
	onComplete func(r *fakeRepo)
}

func (f *fakeRepo) Topics(context.Context) (*domain.TopicsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.topicsErr != nil {
		return nil, f.topicsErr
	}
	return &domain.TopicsPage{Topics: append([]domain.Topic(nil), f.topics...), Profile: f.profile}, nil
}

func (f *fakeRepo) UpdateLastVisitedTopic(_ context.Context, id string) error {
	f.visited = append(f.visited, id)
	return nil
}

func (f *fakeRepo) CompleteTopic(_ context.Context, id string) (*domain.TopicCompletion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	if f.onComplete != nil {
		f.onComplete(f)
	}
	return &domain.TopicCompletion{Success: true, CompletedTopicID: id}, nil
}

func (f *fakeRepo) SubmitPhraseRecording(_ context.Context, topicID string, index int, path string) (*domain.PhraseResult, error) {
	return f.phrase, f.phraseErr
}

func (f *fakeRepo) PhraseRecordings(context.Context, string) ([]domain.PhraseRecording, error) {
	return f.recordings, f.recErr
}

func (f *fakeRepo) SubmitConversationTurn(_ context.Context, topicID string, index int, path, role string) (*domain.TurnResult, error) {
	f.turnRoles = append(f.turnRoles, role)
	return f.turn, f.turnErr
}

type fakeGamification struct {
	streaks int
	xp      map[string]int
	profile domain.GamificationProfile
}

func (f *fakeGamification) UpdateStreak(context.Context) (int, error) {
	f.streaks++
	return f.streaks, nil
}

func (f *fakeGamification) AddExperience(_ context.Context, points int, source string) error {
	if f.xp == nil {
		f.xp = make(map[string]int)
	}
	f.xp[source] += points
	return nil
}

func (f *fakeGamification) Profile(context.Context) (*domain.GamificationProfile, error) {
	p := f.profile
	return &p, nil
}

type fakeAttempts struct {
	domain.AttemptStore
	phrases map[string][]domain.PhraseTranscript
}

func (f *fakeAttempts) SavePhrase(_ context.Context, userKey, topicID string, e domain.PhraseTranscript) error {
	if f.phrases == nil {
		f.phrases = make(map[string][]domain.PhraseTranscript)
	}
	key := userKey + "/" + topicID
	f.phrases[key] = replaceEntry(f.phrases[key], e)
	return nil
}

func (f *fakeAttempts) Phrases(_ context.Context, userKey, topicID string) ([]domain.PhraseTranscript, error) {
	return f.phrases[userKey+"/"+topicID], nil
}

type fakeSource []domain.Topic

func (s fakeSource) List(context.Context) ([]domain.Topic, error) { return s, nil }

func quiet() *logger.Logger { return logger.New(logger.LevelOff, nil) }

func sampleTopics() []domain.Topic {
	return []domain.Topic{
		{
			ID: "t1", Title: "Greetings", Unlocked: true,
			Material:       []string{"Hello", "Good morning"},
			PhraseProgress: &domain.PhraseProgress{TotalPhrases: 2},
			Conversation: []domain.ConversationTurn{
				{Speaker: "B", Text: "Hi there."},
				{Speaker: "A", Text: "Hello, how are you?"},
				{Speaker: "B", Text: "Fine, thanks."},
				{Speaker: "A", Text: "Great"},
			},
		},
		{ID: "t2", Title: "Ordering at a Cafe"},
		{ID: "t3", Title: "Travel"},
	}
}

func newTestJourney(t *testing.T, repo *fakeRepo, g *fakeGamification) *Journey {
	t.Helper()
	j := New(repo, g, quiet())
	if err := j.ReloadTopics(context.Background()); err != nil {
		t.Fatalf("ReloadTopics: %v", err)
	}
	return j
}

func TestChooseSelection(t *testing.T) {
	topics := []domain.Topic{
		{ID: "a", Unlocked: true, Completed: true},
		{ID: "b", Unlocked: true},
		{ID: "c", Unlocked: true, Completed: true},
		{ID: "d"},
	}
	tests := []struct {
		name    string
		profile domain.UserProfile
		prevID  string
		want    int
	}{
		{"first visit ignores last visited", domain.UserProfile{FirstVisit: true, LastVisitedTopicID: "c"}, "", 1},
		{"last visited wins", domain.UserProfile{LastVisitedTopicID: "b"}, "a", 1},
		{"previous selection", domain.UserProfile{}, "b", 1},
		{"completed moves forward", domain.UserProfile{LastVisitedTopicID: "a"}, "", 1},
		{"completed wraps to first open", domain.UserProfile{LastVisitedTopicID: "c"}, "", 1},
		{"locked previous kept", domain.UserProfile{}, "d", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseSelection(topics, tt.profile, tt.prevID); got != tt.want {
				t.Fatalf("chooseSelection = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReloadTopicsFallback(t *testing.T) {
	repo := &fakeRepo{topicsErr: errors.New("connection refused")}
	j := New(repo, &fakeGamification{}, quiet(), WithFallback(fakeSource{{ID: "local", Unlocked: true}}))

	if err := j.ReloadTopics(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if j.Err() != "Unable to load topics. connection refused" {
		t.Fatalf("Err = %q", j.Err())
	}
	if cur, _ := j.Current(); cur == nil || cur.ID != "local" {
		t.Fatalf("current = %+v", cur)
	}
}

func TestSelectTopic(t *testing.T) {
	repo := &fakeRepo{topics: sampleTopics(), profile: domain.UserProfile{FirstVisit: true}}
	j := newTestJourney(t, repo, &fakeGamification{})
	ctx := context.Background()

	if err := j.SelectTopic(ctx, 1); !errors.Is(err, domain.ErrTopicLocked) {
		t.Fatalf("locked topic: %v", err)
	}
	if err := j.SelectTopic(ctx, 9); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("out of range: %v", err)
	}
	if err := j.SelectTopicByID(ctx, "t1"); err != nil {
		t.Fatalf("select t1: %v", err)
	}
	if len(repo.visited) != 1 || repo.visited[0] != "t1" {
		t.Fatalf("visited = %v", repo.visited)
	}
}

func TestUserKey(t *testing.T) {
	tests := []struct {
		email, name, want string
	}{
		{"Ana.Silva@Example.com", "Ana", "ana.silva_example.com"},
		{"", "Jo Lee", "jo_lee"},
		{"  ", "", "default"},
	}
	for _, tt := range tests {
		if got := UserKey(tt.email, tt.name); got != tt.want {
			t.Fatalf("UserKey(%q, %q) = %q, want %q", tt.email, tt.name, got, tt.want)
		}
	}
}

func TestPhraseSubmitAdvances(t *testing.T) {
	repo := &fakeRepo{
		topics:  sampleTopics(),
		profile: domain.UserProfile{FirstVisit: true},
		phrase:  &domain.PhraseResult{Success: true, Accuracy: 88, Feedback: "Clear."},
	}
	g := &fakeGamification{}
	store := &fakeAttempts{}
	j := newTestJourney(t, repo, g)
	flow := NewPhraseFlow(j, repo, store, quiet())
	flow.now = func() time.Time { return time.UnixMilli(5000) }

	out, err := flow.Submit(context.Background(), "p0.wav")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Err != "" || out.Index != 0 || out.TopicCompleted {
		t.Fatalf("outcome = %+v", out)
	}
	want := domain.PhraseTranscript{Index: 0, Text: "Hello", AudioPath: "p0.wav", Accuracy: 88, Feedback: "Clear.", Timestamp: 5000}
	if out.Entry != want {
		t.Fatalf("entry = %+v, want %+v", out.Entry, want)
	}
	if got := store.phrases["default/t1"]; len(got) != 1 || got[0] != want {
		t.Fatalf("stored = %+v", got)
	}
	if flow.TargetIndex() != 1 {
		t.Fatalf("target = %d, want 1", flow.TargetIndex())
	}
	if g.streaks != 1 {
		t.Fatalf("streak updates = %d", g.streaks)
	}
}

func TestPhraseSubmitCompletesTopic(t *testing.T) {
	repo := &fakeRepo{
		topics:  sampleTopics(),
		profile: domain.UserProfile{FirstVisit: true},
		phrase:  &domain.PhraseResult{Success: true, Accuracy: 90, Transcription: "hello"},
		onComplete: func(r *fakeRepo) {
			r.topics[0].Completed = true
			r.topics[1].Unlocked = true
		},
	}
	j := newTestJourney(t, repo, &fakeGamification{})
	flow := NewPhraseFlow(j, repo, &fakeAttempts{}, quiet())
	ctx := context.Background()

	if _, err := flow.Submit(ctx, "p0.wav"); err != nil {
		t.Fatal(err)
	}
	repo.phrase = &domain.PhraseResult{Success: true, Accuracy: 95, Transcription: "good morning", TopicCompleted: true}
	out, err := flow.Submit(ctx, "p1.wav")
	if err != nil {
		t.Fatal(err)
	}
	if out.Index != 1 || !out.TopicCompleted || !flow.ShowCongrats() {
		t.Fatalf("outcome = %+v", out)
	}
	if len(repo.completed) != 1 || repo.completed[0] != "t1" {
		t.Fatalf("completed = %v", repo.completed)
	}
	if out.Unlocked == nil || out.Unlocked.ID != "t2" {
		t.Fatalf("unlocked = %+v", out.Unlocked)
	}
	flow.DismissCongrats()
	if flow.ShowCongrats() {
		t.Fatal("congrats not dismissed")
	}
}

func TestPhraseSubmitFailure(t *testing.T) {
	repo := &fakeRepo{topics: sampleTopics(), phraseErr: errors.New("upload failed")}
	j := newTestJourney(t, repo, &fakeGamification{})
	flow := NewPhraseFlow(j, repo, &fakeAttempts{}, quiet())

	out, err := flow.Submit(context.Background(), "p0.wav")
	if err != nil {
		t.Fatal(err)
	}
	if out.Err != "Failed to process recording. upload failed" {
		t.Fatalf("Err = %q", out.Err)
	}
	if _, err := flow.Submit(context.Background(), ""); !errors.Is(err, domain.ErrRecordingUnavailable) {
		t.Fatalf("empty path: %v", err)
	}
}

func TestLoadTranscriptsMergesLatest(t *testing.T) {
	acc := 70.0
	repo := &fakeRepo{
		topics: sampleTopics(),
		recordings: []domain.PhraseRecording{
			{PhraseIndex: 0, Transcription: "old", Accuracy: &acc, CreatedAt: "1970-01-01T00:00:01Z"},
			{PhraseIndex: 1, Transcription: "server", CreatedAt: "1970-01-01T00:00:09.5Z"},
			{PhraseIndex: 1, Transcription: "older server", CreatedAt: "1970-01-01 00:00:02"},
		},
	}
	store := &fakeAttempts{phrases: map[string][]domain.PhraseTranscript{
		"default/t1": {{Index: 0, Text: "local", Timestamp: 3000}},
	}}
	j := newTestJourney(t, repo, &fakeGamification{})
	flow := NewPhraseFlow(j, repo, store, quiet())

	got, err := flow.LoadTranscripts(context.Background())
	if err != nil {
		t.Fatalf("LoadTranscripts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transcripts: %+v", len(got), got)
	}
	if got[0].Index != 1 || got[0].Text != "server" || got[0].Timestamp != 9500 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Index != 0 || got[1].Text != "local" {
		t.Fatalf("second = %+v", got[1])
	}

	repo.recErr = errors.New("offline")
	got, err = flow.LoadTranscripts(context.Background())
	if err != nil || len(got) != 1 || got[0].Text != "local" {
		t.Fatalf("offline = %+v, %v", got, err)
	}
}

func TestInspection(t *testing.T) {
	repo := &fakeRepo{topics: sampleTopics()}
	repo.topics[0].Material = []string{"a", "b", "c", "d"}
	repo.topics[0].PhraseProgress = &domain.PhraseProgress{TotalPhrases: 4, CurrentPhraseIndex: 3}
	j := newTestJourney(t, repo, &fakeGamification{})
	flow := NewPhraseFlow(j, repo, &fakeAttempts{}, quiet())
	flow.setTranscripts([]domain.PhraseTranscript{{Index: 2}, {Index: 0}})

	if err := flow.Inspect(1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("inspect unpracticed: %v", err)
	}

	flow.InspectPrevious()
	if i, ok := flow.Inspected(); !ok || i != 2 {
		t.Fatalf("previous from current = %d, %v", i, ok)
	}
	flow.InspectPrevious()
	if i, _ := flow.Inspected(); i != 0 {
		t.Fatalf("previous = %d, want 0", i)
	}
	flow.InspectPrevious()
	if i, _ := flow.Inspected(); i != 0 {
		t.Fatalf("previous at start = %d, want 0", i)
	}
	flow.InspectNext()
	if i, _ := flow.Inspected(); i != 2 {
		t.Fatalf("next = %d, want 2", i)
	}
	if flow.TargetIndex() != 2 {
		t.Fatalf("target while inspecting = %d", flow.TargetIndex())
	}

	flow.ClearInspection()
	if flow.TargetIndex() != 3 {
		t.Fatalf("target = %d, want 3", flow.TargetIndex())
	}
	flow.BeginReview()
	if i, _ := flow.Inspected(); i != 0 {
		t.Fatalf("review starts at %d", i)
	}
}

func TestParseCreatedAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"2026-03-01T10:00:00Z", base, true},
		{"2026-03-01T10:00:00.123456Z", base + 123, true},
		{"2026-03-01T10:00:00.5", base + 500, true},
		{"2026-03-01T12:00:00+02:00", base, true},
		{"2026-03-01T10:00:00", base, true},
		{"2026-03-01 10:00:00", base, true},
		{"yesterday", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCreatedAt(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("ParseCreatedAt(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestConversationFlow(t *testing.T) {
	next := 3
	repo := &fakeRepo{topics: sampleTopics(), turn: &domain.TurnResult{Success: true, Accuracy: 82.7, NextTurnIndex: &next}}
	j := newTestJourney(t, repo, &fakeGamification{})
	flow := NewConversationFlow(j, repo, quiet())
	ctx := context.Background()

	if err := flow.SetRole(" c "); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("role c: %v", err)
	}
	if err := flow.SetRole(" a "); err != nil || flow.Role() != "A" {
		t.Fatalf("role a: %v, %q", err, flow.Role())
	}

	out, err := flow.SubmitTurn(ctx, 1, "t1.wav")
	if err != nil {
		t.Fatal(err)
	}
	if out.Score != 82 || out.Finished || flow.ShowCongrats() {
		t.Fatalf("first turn = %+v", out)
	}

	repo.turn = &domain.TurnResult{Success: true, Accuracy: 90, NextTurnIndex: &next}
	out, err = flow.SubmitTurn(ctx, 3, "t3.wav")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Finished || !flow.ShowCongrats() {
		t.Fatalf("last turn should finish: %+v", out)
	}
	if scores := flow.TurnScores(); scores[1] != 82 || scores[3] != 90 {
		t.Fatalf("scores = %v", scores)
	}
	if len(repo.turnRoles) != 2 || repo.turnRoles[0] != "A" {
		t.Fatalf("roles = %v", repo.turnRoles)
	}

	out, _ = flow.SubmitTurn(ctx, 1, "")
	if out.Err != "Recording not available." {
		t.Fatalf("missing file: %q", out.Err)
	}
	repo.turnErr = errors.New("503")
	out, _ = flow.SubmitTurn(ctx, 1, "t1.wav")
	if out.Err != "Failed to process recording. 503" {
		t.Fatalf("failure: %q", out.Err)
	}
	flow.DismissResult()
	if flow.LastResult() != nil {
		t.Fatal("result not dismissed")
	}
}

func TestRehearsal(t *testing.T) {
	repo := &fakeRepo{topics: sampleTopics()}
	g := &fakeGamification{}
	j := newTestJourney(t, repo, g)
	r := NewRehearsal(j, g, quiet())
	ctx := context.Background()

	step, err := r.ChooseRole("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(step.AITurns) != 1 || step.AITurns[0] != 0 || step.Prompt != 1 {
		t.Fatalf("opening step = %+v", step)
	}

	step, err = r.OnTranscript(ctx, "  Hello, how are you ")
	if err != nil {
		t.Fatal(err)
	}
	if len(step.AITurns) != 1 || step.AITurns[0] != 2 || step.Prompt != 3 {
		t.Fatalf("after correct answer = %+v", step)
	}

	for i := 1; i <= 3; i++ {
		step, _ = r.OnTranscript(ctx, "sorry")
		if step.Hint != "Try saying: Great..." {
			t.Fatalf("hint = %q", step.Hint)
		}
		if (step.Reveal != "") != (i == 3) {
			t.Fatalf("attempt %d reveal = %q", i, step.Reveal)
		}
	}

	step, _ = r.OnTranscript(ctx, "great!")
	if !step.Finished || step.XP != 100 || step.Message != rehearsalDoneLine {
		t.Fatalf("final step = %+v", step)
	}
	if g.xp[rehearsalXPSource] != 100 || r.Active() {
		t.Fatalf("xp = %v, active %v", g.xp, r.Active())
	}
	if _, err := r.OnTranscript(ctx, "again"); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("after finish: %v", err)
	}
}

func TestHint(t *testing.T) {
	if got := hint("Hello, how are you?"); got != "Try starting with: Hello, how..." {
		t.Fatalf("hint = %q", got)
	}
	if got := hint("Thank you"); got != "Try saying: Thank..." {
		t.Fatalf("hint = %q", got)
	}
}

func TestMarkCurrentTopicComplete(t *testing.T) {
	repo := &fakeRepo{
		topics:  sampleTopics(),
		profile: domain.UserProfile{FirstVisit: true},
		onComplete: func(r *fakeRepo) {
			r.topics[0].Completed = true
			r.topics[1].Unlocked = true
		},
	}
	j := newTestJourney(t, repo, &fakeGamification{})
	ctx := context.Background()

	res, err := j.MarkCurrentTopicComplete(ctx)
	if err != nil || res == nil || !res.Success {
		t.Fatalf("complete = %+v, %v", res, err)
	}
	if len(repo.completed) != 1 || repo.completed[0] != "t1" {
		t.Fatalf("completed = %v", repo.completed)
	}
	if topics := j.Topics(); !topics[0].Completed || !topics[1].Unlocked {
		t.Fatalf("topics not reloaded: %+v", topics[:2])
	}

	if err := j.SelectTopic(ctx, 0); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	res, err = j.MarkCurrentTopicComplete(ctx)
	if res != nil || err != nil {
		t.Fatalf("already completed = %+v, %v", res, err)
	}
	if len(repo.completed) != 1 {
		t.Fatalf("completed twice: %v", repo.completed)
	}
}
