package journey

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// PhraseOutcome is the result of one pronunciation submission.
type PhraseOutcome struct {
	Index          int
	Result         *domain.PhraseResult
	Entry          domain.PhraseTranscript
	TopicCompleted bool          // congratulations should be shown
	Unlocked       *domain.Topic // topic unlocked by this completion, if any
	Err            string        // user-facing, empty on success
}

// PhraseFlow runs pronunciation practice over a topic's material: submit
// a recording for the target phrase, keep transcripts, and review
// practiced phrases.
type PhraseFlow struct {
	journey  *Journey
	repo     domain.JourneyRepository
	attempts domain.AttemptStore
	log      *logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	inspected   *int
	transcripts []domain.PhraseTranscript
	congrats    bool
}

// NewPhraseFlow creates the pronunciation flow for the journey's selected
// topic.
func NewPhraseFlow(j *Journey, repo domain.JourneyRepository, attempts domain.AttemptStore, log *logger.Logger) *PhraseFlow {
	return &PhraseFlow{
		journey:  j,
		repo:     repo,
		attempts: attempts,
		log:      log,
		now:      time.Now,
	}
}

// TargetIndex is the phrase the next recording is for: the inspected
// phrase when reviewing, otherwise the progress index clamped to the
// material.
func (p *PhraseFlow) TargetIndex() int {
	p.mu.Lock()
	inspected := p.inspected
	p.mu.Unlock()
	if inspected != nil {
		return *inspected
	}
	topic, _ := p.journey.Current()
	if topic == nil {
		return 0
	}
	return progressIndex(topic)
}

func progressIndex(t *domain.Topic) int {
	total := t.TotalPhrases()
	raw := 0
	if t.PhraseProgress != nil {
		raw = t.PhraseProgress.CurrentPhraseIndex
	}
	if total <= 0 {
		return 0
	}
	return min(max(raw, 0), total-1)
}

// Submit uploads a recording of the target phrase.
func (p *PhraseFlow) Submit(ctx context.Context, audioPath string) (*PhraseOutcome, error) {
	topic, _ := p.journey.Current()
	if topic == nil {
		return nil, domain.ErrNoTopic
	}
	if audioPath == "" {
		return nil, domain.ErrRecordingUnavailable
	}
	index := p.TargetIndex()

	res, err := p.repo.SubmitPhraseRecording(ctx, topic.ID, index, audioPath)
	if err != nil {
		p.log.Error("phrase submit: %v", err)
		return &PhraseOutcome{Index: index, Err: "Failed to process recording. " + err.Error()}, nil
	}

	entry := domain.PhraseTranscript{
		Index:     index,
		Text:      res.Transcription,
		AudioPath: res.AudioURL,
		Accuracy:  res.Accuracy,
		Feedback:  res.Feedback,
		Timestamp: p.now().UnixMilli(),
	}
	if entry.Text == "" && index < len(topic.Material) {
		entry.Text = topic.Material[index]
	}
	if entry.AudioPath == "" {
		entry.AudioPath = audioPath
	}
	userKey := p.journey.CurrentUserKey()
	if err := p.attempts.SavePhrase(ctx, userKey, topic.ID, entry); err != nil {
		p.log.Error("saving transcript: %v", err)
	}

	p.mu.Lock()
	p.transcripts = replaceEntry(p.transcripts, entry)
	practiced := len(p.transcripts)
	p.inspected = nil
	p.mu.Unlock()

	before := p.journey.Topics()
	if err := p.journey.ReloadTopics(ctx); err != nil {
		p.log.Warn("reload after phrase: %v", err)
	}
	p.journey.MarkSpeakingActivity(ctx)

	// Advance optimistically so the next target is right even before the
	// server's progress catches up.
	p.journey.updateTopic(topic.ID, func(t *domain.Topic) {
		total := t.TotalPhrases()
		next := -1
		switch {
		case res.NextPhraseIndex != nil:
			next = *res.NextPhraseIndex
		case res.Success && !res.TopicCompleted:
			if n := min(index+1, max(total-1, 0)); n != index {
				next = n
			}
		}
		if next < 0 {
			return
		}
		done := res.TopicCompleted || (total > 0 && practiced >= total)
		if t.PhraseProgress == nil {
			t.PhraseProgress = &domain.PhraseProgress{TotalPhrases: total}
		} else {
			pp := *t.PhraseProgress
			t.PhraseProgress = &pp
		}
		t.PhraseProgress.CurrentPhraseIndex = next
		t.PhraseProgress.AllCompleted = t.PhraseProgress.AllCompleted || done
	})

	out := &PhraseOutcome{Index: index, Result: res, Entry: entry}
	if !res.Success {
		return out, nil
	}

	if res.TopicCompleted || (topic.TotalPhrases() > 0 && practiced >= topic.TotalPhrases()) {
		out.TopicCompleted = true
		p.mu.Lock()
		p.congrats = true
		p.mu.Unlock()

		if _, err := p.repo.CompleteTopic(ctx, topic.ID); err != nil {
			p.log.Warn("completing topic: %v", err)
		}
		if err := p.journey.ReloadTopics(ctx); err == nil {
			out.Unlocked = newlyUnlocked(before, p.journey.Topics())
		}
	}
	if _, err := p.journey.RefreshProfile(ctx); err != nil {
		p.log.Debug("profile refresh: %v", err)
	}
	return out, nil
}

// newlyUnlocked finds the first topic locked in before and unlocked now.
func newlyUnlocked(before, after []domain.Topic) *domain.Topic {
	for i := range after {
		if i < len(before) && !before[i].Unlocked && after[i].Unlocked {
			t := after[i]
			return &t
		}
	}
	return nil
}

func replaceEntry(entries []domain.PhraseTranscript, e domain.PhraseTranscript) []domain.PhraseTranscript {
	out := make([]domain.PhraseTranscript, 0, len(entries)+1)
	for _, old := range entries {
		if old.Index != e.Index {
			out = append(out, old)
		}
	}
	out = append(out, e)
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// LoadTranscripts loads the local transcripts for the selected topic and
// merges the server's recordings, keeping the latest entry per phrase.
// Server failures keep the local list.
func (p *PhraseFlow) LoadTranscripts(ctx context.Context) ([]domain.PhraseTranscript, error) {
	topic, _ := p.journey.Current()
	if topic == nil {
		p.setTranscripts(nil)
		return nil, domain.ErrNoTopic
	}

	local, err := p.attempts.Phrases(ctx, p.journey.CurrentUserKey(), topic.ID)
	if err != nil {
		p.log.Warn("reading local transcripts: %v", err)
	}
	merged := latestPerPhrase(local)
	p.setTranscripts(merged)

	recs, err := p.repo.PhraseRecordings(ctx, topic.ID)
	if err != nil {
		p.log.Warn("fetching recordings: %v", err)
		return merged, nil
	}

	server := make([]domain.PhraseTranscript, 0, len(recs))
	for _, r := range recs {
		ts, _ := ParseCreatedAt(r.CreatedAt)
		var acc float64
		if r.Accuracy != nil {
			acc = *r.Accuracy
		}
		server = append(server, domain.PhraseTranscript{
			Index:     r.PhraseIndex,
			Text:      r.Transcription,
			AudioPath: r.AudioURL,
			Accuracy:  acc,
			Feedback:  r.Feedback,
			Timestamp: ts,
		})
	}
	merged = latestPerPhrase(append(merged, server...))
	p.setTranscripts(merged)
	return merged, nil
}

// latestPerPhrase keeps the newest entry per index, newest first.
func latestPerPhrase(entries []domain.PhraseTranscript) []domain.PhraseTranscript {
	latest := make(map[int]domain.PhraseTranscript)
	for _, e := range entries {
		if cur, ok := latest[e.Index]; !ok || e.Timestamp > cur.Timestamp {
			latest[e.Index] = e
		}
	}
	out := make([]domain.PhraseTranscript, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Timestamp != out[b].Timestamp {
			return out[a].Timestamp > out[b].Timestamp
		}
		return out[a].Index < out[b].Index
	})
	return out
}

func (p *PhraseFlow) setTranscripts(t []domain.PhraseTranscript) {
	p.mu.Lock()
	p.transcripts = t
	p.mu.Unlock()
}

// Transcripts returns the known transcripts for the selected topic.
func (p *PhraseFlow) Transcripts() []domain.PhraseTranscript {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.PhraseTranscript(nil), p.transcripts...)
}

// practicedLocked returns the distinct practiced indices, ascending.
func (p *PhraseFlow) practicedLocked() []int {
	seen := make(map[int]bool)
	var out []int
	for _, t := range p.transcripts {
		if !seen[t.Index] {
			seen[t.Index] = true
			out = append(out, t.Index)
		}
	}
	sort.Ints(out)
	return out
}

// Inspect reviews a practiced phrase. Unpracticed indices are rejected.
func (p *PhraseFlow) Inspect(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, i := range p.practicedLocked() {
		if i == index {
			p.inspected = &index
			return nil
		}
	}
	return domain.ErrNotFound
}

// BeginReview inspects the earliest practiced phrase, or phrase 0.
func (p *PhraseFlow) BeginReview() {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := 0
	if practiced := p.practicedLocked(); len(practiced) > 0 {
		start = practiced[0]
	}
	p.inspected = &start
}

// InspectPrevious moves to the practiced phrase before the inspected one.
// Outside review it jumps to the last practiced phrase before the current
// one.
func (p *PhraseFlow) InspectPrevious() {
	current := 0
	if topic, _ := p.journey.Current(); topic != nil && topic.PhraseProgress != nil {
		current = topic.PhraseProgress.CurrentPhraseIndex
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	limit := current
	if p.inspected != nil {
		limit = *p.inspected
	}
	target := -1
	for _, i := range p.practicedLocked() {
		if i < limit {
			target = i
		}
	}
	if target >= 0 {
		p.inspected = &target
	}
}

// InspectNext moves to the practiced phrase after the inspected one.
func (p *PhraseFlow) InspectNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inspected == nil {
		return
	}
	for _, i := range p.practicedLocked() {
		if i > *p.inspected {
			next := i
			p.inspected = &next
			return
		}
	}
}

// ClearInspection leaves review mode.
func (p *PhraseFlow) ClearInspection() {
	p.mu.Lock()
	p.inspected = nil
	p.mu.Unlock()
}

// Inspected returns the phrase under review.
func (p *PhraseFlow) Inspected() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inspected == nil {
		return 0, false
	}
	return *p.inspected, true
}

// ShowCongrats reports whether the topic was just completed.
func (p *PhraseFlow) ShowCongrats() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.congrats
}

// DismissCongrats hides the completion message.
func (p *PhraseFlow) DismissCongrats() {
	p.mu.Lock()
	p.congrats = false
	p.mu.Unlock()
}

// ParseCreatedAt converts a server timestamp to unix millis. Fractional
// seconds are normalized to milliseconds and a missing zone means UTC.
// Accepted forms: ISO-8601 with or without fraction, and
// "yyyy-MM-dd HH:mm:ss".
func ParseCreatedAt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	normalized := normalizeFraction(s)
	for _, layout := range []string{
		"2006-01-02T15:04:05.000Z07:00",
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000Z07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, normalized, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func normalizeFraction(s string) string {
	start := max(strings.IndexByte(s, 'T'), 0)
	dot := strings.IndexByte(s[start:], '.')
	if dot < 0 {
		return s
	}
	dot += start
	end := len(s)
	if tz := strings.IndexAny(s[dot:], "Z+-"); tz >= 0 {
		end = dot + tz
	}
	frac := s[dot+1 : end]
	if len(frac) >= 3 {
		frac = frac[:3]
	} else {
		frac += strings.Repeat("0", 3-len(frac))
	}
	suffix := "Z"
	if end < len(s) {
		suffix = s[end:]
	}
	return s[:dot] + "." + frac + suffix
}
