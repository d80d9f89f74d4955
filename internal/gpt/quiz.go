package gpt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

const (
	offlineAnswerXP     = 10
	offlineCompletionXP = 20
	defaultQuizSize     = 5
)

// TopicGetter looks up a topic by id.
type TopicGetter interface {
	Get(ctx context.Context, id string) (*domain.Topic, error)
}

var _ domain.PracticeRepository = (*QuizBank)(nil)

// QuizBank is an offline PracticeRepository: quiz questions are generated
// by the tutor and graded locally. The recording pipeline is not
// available offline.
type QuizBank struct {
	tutor  *Tutor
	topics TopicGetter
	log    *logger.Logger
	size   int

	mu       sync.Mutex
	sessions map[string]*quiz
}

type quiz struct {
	questions []GeneratedQuestion
	answered  map[int]bool
	correct   int
}

// NewQuizBank creates an offline quiz source with size questions per
// session.
func NewQuizBank(tutor *Tutor, topics TopicGetter, size int, log *logger.Logger) *QuizBank {
	if size <= 0 {
		size = defaultQuizSize
	}
	return &QuizBank{
		tutor:    tutor,
		topics:   topics,
		log:      log,
		size:     size,
		sessions: make(map[string]*quiz),
	}
}

func questionID(i int) string { return "q" + strconv.Itoa(i+1) }

// StartPractice generates a fresh question set.
func (b *QuizBank) StartPractice(ctx context.Context, topicID string, mode domain.PracticeMode) (*domain.PracticeStart, error) {
	topic, err := b.topics.Get(ctx, topicID)
	if err != nil {
		return nil, fmt.Errorf("gpt: quiz topic %s: %w", topicID, err)
	}
	questions, err := b.tutor.GenerateQuestions(ctx, topic, mode, b.size)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	b.mu.Lock()
	b.sessions[id] = &quiz{questions: questions, answered: make(map[int]bool)}
	b.mu.Unlock()

	start := &domain.PracticeStart{SessionID: id, TotalQuestions: len(questions)}
	for i, q := range questions {
		start.Questions = append(start.Questions, domain.Question{
			ID:      questionID(i),
			Prompt:  q.Question,
			Options: append([]string(nil), q.Options...),
		})
	}
	b.log.Info("offline %s quiz %s: %d questions", mode, id, len(questions))
	return start, nil
}

// SubmitAnswer grades an answer. selected is the option text or its
// 1-based number.
func (b *QuizBank) SubmitAnswer(_ context.Context, _ string, _ domain.PracticeMode, sessionID, qid, selected string) (*domain.AnswerResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotActive
	}
	idx := -1
	for i := range q.questions {
		if questionID(i) == qid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.ErrNotFound
	}

	question := q.questions[idx]
	answer := strings.TrimSpace(selected)
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(question.Options) {
		answer = question.Options[n-1]
	}
	correct := strings.EqualFold(answer, strings.TrimSpace(question.Answer))

	res := &domain.AnswerResult{Correct: correct}
	if !q.answered[idx] {
		q.answered[idx] = true
		if correct {
			q.correct++
			res.XPAwarded = offlineAnswerXP
		}
	}
	res.TotalScore = q.correct * offlineAnswerXP
	res.Completed = len(q.answered) == len(q.questions)
	return res, nil
}

// CompletePractice closes the session. A perfect run earns a bonus.
func (b *QuizBank) CompletePractice(_ context.Context, _ string, _ domain.PracticeMode, sessionID string) (*domain.CompletionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotActive
	}
	delete(b.sessions, sessionID)

	res := &domain.CompletionResult{
		TotalScore:     q.correct * offlineAnswerXP,
		TotalQuestions: len(q.questions),
		CorrectCount:   q.correct,
	}
	if q.correct == len(q.questions) {
		res.XPAwarded = offlineCompletionXP
	}
	return res, nil
}

// PromptsByCategory is not available offline.
func (b *QuizBank) PromptsByCategory(context.Context, string) ([]domain.PracticePrompt, error) {
	return nil, domain.ErrNotImplemented
}

// RandomPrompt is not available offline.
func (b *QuizBank) RandomPrompt(context.Context) (*domain.PracticePrompt, error) {
	return nil, domain.ErrNotImplemented
}

// SubmitRecording is not available offline.
func (b *QuizBank) SubmitRecording(context.Context, string, string) (string, error) {
	return "", domain.ErrNotImplemented
}

// Evaluation is not available offline.
func (b *QuizBank) Evaluation(context.Context, string) (*domain.FluencyEvaluation, error) {
	return nil, domain.ErrNotImplemented
}
