// Package engine implements the quiz practice state machine shared by the
// grammar, vocabulary, and listening modes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// User-facing messages stored on Session.Err.
const (
	msgNoQuestions    = "No questions available for this topic."
	msgStartFailed    = "Failed to start practice"
	msgSubmitFailed   = "Failed to submit answer"
	msgCompleteFailed = "Failed to complete practice"
)

// Option configures the engine.
type Option func(*Engine)

// WithFeedbackDelay sets how long answer feedback stays visible before
// the session advances.
func WithFeedbackDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.feedbackDelay = d
	}
}

// WithLedger records earned XP and practice days locally.
func WithLedger(l domain.ActivityLedger) Option {
	return func(e *Engine) {
		e.ledger = l
	}
}

// WithUserKey sets the function that names the current user in the ledger.
func WithUserKey(fn func() string) Option {
	return func(e *Engine) {
		e.userKey = fn
	}
}

// WithOnChange registers a callback invoked with a snapshot after every
// state transition. The UI uses it to render feedback during the delay.
func WithOnChange(fn func(*domain.Session)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// Engine drives quiz sessions. It depends only on interfaces and is
// fully testable with fakes.
type Engine struct {
	practice      domain.PracticeRepository
	gamification  domain.GamificationRepository
	store         domain.SessionStore
	ledger        domain.ActivityLedger
	log           *logger.Logger
	feedbackDelay time.Duration
	userKey       func() string
	onChange      func(*domain.Session)

	// mu serializes read-modify-write cycles on the store.
	mu sync.Mutex
}

// New creates a quiz engine with the given dependencies and options.
func New(practice domain.PracticeRepository, gamification domain.GamificationRepository, store domain.SessionStore, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		practice:      practice,
		gamification:  gamification,
		store:         store,
		log:           log,
		feedbackDelay: time.Second,
		userKey:       func() string { return "default" },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens a quiz session for topic. An existing session for the same
// topic and mode is returned untouched unless it is showing its
// congratulations. Vocabulary keeps any session until it is dismissed.
func (e *Engine) Start(ctx context.Context, mode domain.PracticeMode, topic *domain.Topic) (*domain.Session, error) {
	if !mode.IsQuiz() {
		return nil, fmt.Errorf("engine: %s is not a quiz mode", mode)
	}
	if topic == nil {
		return nil, domain.ErrNoTopic
	}

	e.mu.Lock()
	existing, err := e.store.Load(ctx, topic.ID, mode)
	if err == nil && reusable(existing, mode) {
		e.mu.Unlock()
		e.log.Debug("reusing %s session %s for topic %s", mode, existing.ID, topic.ID)
		return existing.Clone(), nil
	}

	now := time.Now()
	loading := &domain.Session{
		TopicID:   topic.ID,
		Mode:      mode,
		Loading:   true,
		Status:    domain.SessionActive,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.Save(ctx, loading); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: saving session: %w", err)
	}
	e.mu.Unlock()
	e.emit(loading)

	start, err := e.practice.StartPractice(ctx, topic.ID, mode)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = msgStartFailed
		}
		e.update(ctx, topic.ID, mode, func(s *domain.Session) {
			s.Loading = false
			s.Err = msg
		})
		return nil, fmt.Errorf("engine: starting %s practice: %w", mode, err)
	}

	if mode == domain.ModeGrammar || mode == domain.ModeListening {
		e.touchStreak(ctx)
	}

	if len(start.Questions) == 0 {
		e.update(ctx, topic.ID, mode, func(s *domain.Session) {
			s.Loading = false
			s.Err = msgNoQuestions
		})
		return nil, domain.ErrNoQuestions
	}

	total := start.TotalQuestions
	if total <= 0 {
		total = len(start.Questions)
	}
	id := start.SessionID
	if id == "" {
		id = generateID()
	}

	session, err := e.update(ctx, topic.ID, mode, func(s *domain.Session) {
		s.ID = id
		s.Questions = append([]domain.Question(nil), start.Questions...)
		s.TotalQuestions = total
		s.Index = 0
		s.Loading = false
		s.QuestionsVisible = mode != domain.ModeListening
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("started %s session %s for topic %q (%d questions)", mode, id, topic.Title, total)
	return session, nil
}

func reusable(s *domain.Session, mode domain.PracticeMode) bool {
	if s.ID == "" || s.Status == domain.SessionDismissed {
		return false
	}
	if mode == domain.ModeVocabulary {
		return true
	}
	return s.Status == domain.SessionActive && !s.ShowCongrats
}

// RevealQuestions shows the questions of a listening session, which stay
// hidden until the learner has heard the audio.
func (e *Engine) RevealQuestions(ctx context.Context, mode domain.PracticeMode, topicID string) (*domain.Session, error) {
	return e.update(ctx, topicID, mode, func(s *domain.Session) {
		s.QuestionsVisible = true
	})
}

// Select submits option as the answer to the current question. It shows
// the verdict for the feedback delay and then advances or finalizes.
// Each call advances the index at most once.
func (e *Engine) Select(ctx context.Context, mode domain.PracticeMode, topicID, option string) (*domain.Session, error) {
	e.mu.Lock()
	session, err := e.store.Load(ctx, topicID, mode)
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: loading session: %w", err)
	}
	if session.ID == "" || session.Status != domain.SessionActive || session.ShowCongrats {
		e.mu.Unlock()
		return nil, domain.ErrSessionNotActive
	}
	if session.Submitting {
		e.mu.Unlock()
		return nil, domain.ErrSubmitting
	}
	question := session.Current()
	if question == nil {
		e.mu.Unlock()
		return nil, domain.ErrNoQuestions
	}

	index := session.Index
	questionID := question.ID
	sessionID := session.ID
	session.Submitting = true
	session.SelectedOption = option
	session.Revealed = false
	session.AnswerCorrect = nil
	session.UpdatedAt = time.Now()
	if err := e.store.Save(ctx, session); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: saving session: %w", err)
	}
	e.mu.Unlock()
	e.emit(session)

	res, err := e.practice.SubmitAnswer(ctx, topicID, mode, sessionID, questionID, option)
	if err != nil {
		e.update(ctx, topicID, mode, func(s *domain.Session) {
			s.Submitting = false
			s.Err = msgSubmitFailed
		})
		return nil, fmt.Errorf("engine: submitting answer: %w", err)
	}
	if mode == domain.ModeListening {
		e.touchStreak(ctx)
	}

	_, err = e.update(ctx, topicID, mode, func(s *domain.Session) {
		correct := res.Correct
		if correct {
			s.CorrectCount++
		}
		if res.XPAwarded > 0 {
			s.XPFromAnswers += res.XPAwarded
		}
		s.Submitting = false
		s.Revealed = true
		s.AnswerCorrect = &correct
		s.LastAwardedXP = res.XPAwarded
		s.TotalXP = s.XPFromAnswers
		if res.TotalScore > s.Score {
			s.Score = res.TotalScore
		}
		s.CompletionPending = res.Completed
	})
	if err != nil {
		return nil, err
	}

	// The answer is graded once the backend replies, so a cancelled wait
	// still moves past it.
	waitErr := sleepCtx(ctx, e.feedbackDelay)
	if waitErr != nil {
		ctx = context.WithoutCancel(ctx)
	}

	var next *domain.Session
	if res.Completed {
		next, err = e.finalize(ctx, mode, topicID, sessionID)
	} else {
		next, err = e.advance(ctx, mode, topicID, sessionID, index, res.NextIndex)
	}
	if err != nil {
		return nil, err
	}
	return next, waitErr
}

// advance moves past the question at index unless another call already did.
func (e *Engine) advance(ctx context.Context, mode domain.PracticeMode, topicID, sessionID string, index int, hint *int) (*domain.Session, error) {
	next := index + 1
	if hint != nil && *hint > index {
		next = *hint
	}
	return e.update(ctx, topicID, mode, func(s *domain.Session) {
		if s.ID != sessionID || s.Index != index {
			return
		}
		s.Index = next
		s.SelectedOption = ""
		s.Revealed = false
		s.AnswerCorrect = nil
		s.CompletionPending = false
	})
}

// finalize completes the session on the backend and shows congratulations.
func (e *Engine) finalize(ctx context.Context, mode domain.PracticeMode, topicID, sessionID string) (*domain.Session, error) {
	res, err := e.practice.CompletePractice(ctx, topicID, mode, sessionID)
	if err != nil {
		e.update(ctx, topicID, mode, func(s *domain.Session) {
			s.Submitting = false
			s.Err = msgCompleteFailed
		})
		return nil, fmt.Errorf("engine: completing practice: %w", err)
	}
	if mode == domain.ModeListening {
		e.touchStreak(ctx)
	}

	session, err := e.update(ctx, topicID, mode, func(s *domain.Session) {
		s.Submitting = false
		s.ShowCongrats = true
		s.CompletionPending = false
		if res.TotalQuestions > 0 {
			s.TotalQuestions = res.TotalQuestions
		}
		if s.TotalQuestions > s.Index {
			s.Index = s.TotalQuestions
		}
		if res.TotalScore > s.Score {
			s.Score = res.TotalScore
		}
		if res.XPAwarded > 0 {
			s.CompletionXP = res.XPAwarded
		}
		s.TotalXP = s.XPFromAnswers + s.CompletionXP
		if res.CorrectCount > s.CorrectCount {
			s.CorrectCount = res.CorrectCount
		}
		s.Status = domain.SessionCompleted
	})
	if err != nil {
		return nil, err
	}

	e.record(ctx, mode, session.TotalXP)
	e.log.Info("%s session %s completed: score %d, %d XP", mode, sessionID, session.Score, session.TotalXP)
	return session, nil
}

// Dismiss hides the congratulations and forgets the session so the next
// Start begins fresh.
func (e *Engine) Dismiss(ctx context.Context, mode domain.PracticeMode, topicID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	session, err := e.store.Load(ctx, topicID, mode)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("engine: loading session: %w", err)
	}
	session.ShowCongrats = false
	session.ID = ""
	session.Questions = nil
	session.Status = domain.SessionDismissed
	e.emit(session)

	if err := e.store.Delete(ctx, topicID, mode); err != nil {
		return fmt.Errorf("engine: deleting session: %w", err)
	}
	e.log.Debug("dismissed %s session for topic %s", mode, topicID)
	return nil
}

// Restart discards any session for the topic and mode and starts over.
func (e *Engine) Restart(ctx context.Context, mode domain.PracticeMode, topic *domain.Topic) (*domain.Session, error) {
	if topic == nil {
		return nil, domain.ErrNoTopic
	}
	e.mu.Lock()
	err := e.store.Delete(ctx, topic.ID, mode)
	e.mu.Unlock()
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("engine: deleting session: %w", err)
	}
	return e.Start(ctx, mode, topic)
}

// ClearError drops the user-facing error message.
func (e *Engine) ClearError(ctx context.Context, mode domain.PracticeMode, topicID string) error {
	_, err := e.update(ctx, topicID, mode, func(s *domain.Session) {
		s.Err = ""
	})
	return err
}

// Session returns a snapshot of the session for topic and mode.
func (e *Engine) Session(ctx context.Context, mode domain.PracticeMode, topicID string) (*domain.Session, error) {
	session, err := e.store.Load(ctx, topicID, mode)
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// ActiveSessions lists every quiz session still in progress.
func (e *Engine) ActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	return e.store.ListActive(ctx)
}

// update applies fn to the stored session under the lock, saves it, and
// returns a snapshot.
func (e *Engine) update(ctx context.Context, topicID string, mode domain.PracticeMode, fn func(*domain.Session)) (*domain.Session, error) {
	e.mu.Lock()
	session, err := e.store.Load(ctx, topicID, mode)
	if err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: loading session: %w", err)
	}
	fn(session)
	session.UpdatedAt = time.Now()
	if err := e.store.Save(ctx, session); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine: saving session: %w", err)
	}
	e.mu.Unlock()

	snap := session.Clone()
	e.emit(snap)
	return snap, nil
}

func (e *Engine) emit(s *domain.Session) {
	if e.onChange != nil {
		e.onChange(s.Clone())
	}
}

// touchStreak counts the practice as activity. Failures are only logged.
func (e *Engine) touchStreak(ctx context.Context) {
	if e.gamification == nil {
		return
	}
	if _, err := e.gamification.UpdateStreak(ctx); err != nil {
		e.log.Warn("updating streak: %v", err)
	}
}

func (e *Engine) record(ctx context.Context, mode domain.PracticeMode, xp int) {
	if e.ledger == nil {
		return
	}
	user := e.userKey()
	if xp > 0 {
		if err := e.ledger.AddXP(ctx, user, "practice_"+mode.String(), xp); err != nil {
			e.log.Warn("ledger xp: %v", err)
		}
	}
	if err := e.ledger.MarkActive(ctx, user, time.Now()); err != nil {
		e.log.Warn("ledger activity: %v", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
