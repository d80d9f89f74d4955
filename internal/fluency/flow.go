package fluency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

const xpSource = "practice_fluency"

// Result is everything the UI shows after a submission.
type Result struct {
	Attempt     domain.FluencyAttempt
	Score       int
	Completed   bool
	XP          int // 0 when the server could not be reached
	Feedback    string
	Suggestions []string
	Analysis    Analysis
	Err         string // user-facing, empty on success
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithLedger records earned XP and the practice day locally.
func WithLedger(l domain.ActivityLedger) FlowOption {
	return func(f *Flow) { f.ledger = l }
}

// WithUserID sets how the attempt owner is resolved. Defaults to "default".
func WithUserID(fn func() string) FlowOption {
	return func(f *Flow) { f.userID = fn }
}

// WithClock overrides time.Now for attempt timestamps.
func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) { f.now = now }
}

// Flow submits fluency recordings through the practice pipeline and the
// journey endpoint, scores them, and keeps the local attempt history.
type Flow struct {
	practice     domain.PracticeRepository
	journey      domain.JourneyRepository
	gamification domain.GamificationRepository
	attempts     domain.AttemptStore
	ledger       domain.ActivityLedger
	log          *logger.Logger
	userID       func() string
	now          func() time.Time

	mu      sync.Mutex
	prompts map[string]string // topic id -> backend prompt id
}

// NewFlow wires the fluency pipeline.
func NewFlow(
	practice domain.PracticeRepository,
	journey domain.JourneyRepository,
	gamification domain.GamificationRepository,
	attempts domain.AttemptStore,
	log *logger.Logger,
	opts ...FlowOption,
) *Flow {
	f := &Flow{
		practice:     practice,
		journey:      journey,
		gamification: gamification,
		attempts:     attempts,
		log:          log,
		userID:       func() string { return "default" },
		now:          time.Now,
		prompts:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Prepare resolves the backend prompt that recordings for topic are
// submitted against: the first prompt in the topic's category, else a
// random one. Call it when a fluency attempt starts.
func (f *Flow) Prepare(ctx context.Context, topic *domain.Topic) (string, error) {
	if topic == nil {
		return "", domain.ErrNoTopic
	}
	id := ""
	if list, err := f.practice.PromptsByCategory(ctx, topic.Title); err != nil {
		f.log.Debug("prompts for %q: %v", topic.Title, err)
	} else if len(list) > 0 {
		id = list[0].ID
	}
	if id == "" {
		p, err := f.practice.RandomPrompt(ctx)
		if err != nil {
			return "", fmt.Errorf("fluency: resolving prompt: %w", err)
		}
		id = p.ID
	}
	if id == "" {
		return "", domain.ErrNoPrompt
	}

	f.mu.Lock()
	f.prompts[topic.ID] = id
	f.mu.Unlock()
	f.log.Debug("fluency prompt for %s: %s", topic.ID, id)
	return id, nil
}

func (f *Flow) promptFor(ctx context.Context, topic *domain.Topic) (string, error) {
	f.mu.Lock()
	id, ok := f.prompts[topic.ID]
	f.mu.Unlock()
	if ok {
		return id, nil
	}
	return f.Prepare(ctx, topic)
}

// Submit evaluates a finished recording. Server failures never fail the
// call: the score is then computed locally and Result.Err explains what
// went wrong. The attempt is stored either way.
func (f *Flow) Submit(ctx context.Context, topic *domain.Topic, rec Recording) (*Result, error) {
	if topic == nil {
		return nil, domain.ErrNoTopic
	}
	if rec.AudioPath == "" {
		return nil, domain.ErrRecordingUnavailable
	}
	durSec := rec.Duration.Seconds()

	// 1. Practice pipeline: session id, then evaluation.
	var sessionID string
	promptID, serverErr := f.promptFor(ctx, topic)
	if serverErr == nil {
		sessionID, serverErr = f.practice.SubmitRecording(ctx, promptID, rec.AudioPath)
	}
	if serverErr == nil && sessionID == "" {
		serverErr = errors.New("missing session id from server")
	}
	var eval *domain.FluencyEvaluation
	if serverErr == nil {
		var err error
		if eval, err = f.practice.Evaluation(ctx, sessionID); err != nil {
			f.log.Warn("evaluation for %s unavailable: %v", sessionID, err)
			eval = nil
		}
		if _, err := f.gamification.UpdateStreak(ctx); err != nil {
			f.log.Debug("streak update failed: %v", err)
		}
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	// 2. Analysis with server values preferred.
	analysis := BuildAnalysis(eval)
	var transcript, feedback string
	if eval != nil {
		transcript = eval.Transcript
		feedback = eval.Feedback
	}

	res := &Result{Analysis: analysis}

	// 3. Journey endpoint: transcription and coaching.
	var sub *domain.FluencySubmission
	if serverErr == nil {
		sub, serverErr = f.journey.SubmitFluencyRecording(ctx, topic.ID, rec.AudioPath, rec.Duration)
	}

	if serverErr == nil {
		transcript = sub.Transcription
		feedback = sub.Feedback
		res.Suggestions = sub.Suggestions
		res.Score = Score(transcript, durSec, analysis)

		// 4. Sync the objective score back for prompt 0.
		if _, err := f.journey.SubmitFluencyPromptScore(ctx, topic.ID, 0, res.Score, sub.SessionID); err != nil {
			f.log.Warn("failed to sync fluency score: %v", err)
		}

		// 5. Completion and XP.
		res.Completed = Completed(res.Score)
		res.XP = AwardedXP(res.Score)
		f.record(ctx, res.XP)
	} else {
		// 6. Local fallback.
		res.Score = Score(transcript, durSec, analysis)
		res.Err = fmt.Sprintf("Failed to submit to server: %s", serverErr.Error())
		f.log.Warn("fluency submission fell back to local score: %v", serverErr)
	}
	res.Feedback = feedback

	res.Attempt = domain.FluencyAttempt{
		SessionID:         sessionID,
		AudioPath:         rec.AudioPath,
		Transcript:        transcript,
		Feedback:          feedback,
		OverallScore:      res.Score,
		CreatedAt:         f.now(),
		Pauses:            analysis.Pauses,
		StutterCount:      analysis.StutterCount,
		Mispronunciations: analysis.Mispronunciations,
		UserID:            f.userID(),
	}

	// 7. Local history.
	if err := f.attempts.AppendFluency(ctx, topic.ID, res.Attempt); err != nil {
		f.log.Error("storing fluency attempt: %v", err)
	}
	return res, nil
}

// Attempts lists stored attempts for a topic, newest first.
func (f *Flow) Attempts(ctx context.Context, userID, topicID string) ([]domain.FluencyAttempt, error) {
	attempts, err := f.attempts.FluencyAttempts(ctx, userID, topicID)
	if err != nil {
		return nil, fmt.Errorf("fluency: loading attempts: %w", err)
	}
	return attempts, nil
}

// BuildAnalysis takes pauses, stutters, and mispronunciations from the
// evaluation. When the server sent no pauses, a transcript implies a
// couple of short ones; a hyphenated transcript implies stutters.
func BuildAnalysis(eval *domain.FluencyEvaluation) Analysis {
	if eval == nil {
		return Analysis{}
	}
	a := Analysis{
		Pauses:            eval.Pauses,
		StutterCount:      eval.StutterCount,
		Mispronunciations: eval.Mispronunciations,
	}
	if a.Pauses == nil && strings.TrimSpace(eval.Transcript) != "" {
		a.Pauses = []float64{0.8, 1.2}
	}
	if a.StutterCount == 0 && strings.Contains(eval.Transcript, "-") {
		a.StutterCount = 2
	}
	return a
}

func (f *Flow) record(ctx context.Context, xp int) {
	if f.ledger == nil {
		return
	}
	user := f.userID()
	if err := f.ledger.AddXP(ctx, user, xpSource, xp); err != nil {
		f.log.Warn("ledger xp: %v", err)
	}
	if err := f.ledger.MarkActive(ctx, user, f.now()); err != nil {
		f.log.Warn("ledger activity: %v", err)
	}
}
