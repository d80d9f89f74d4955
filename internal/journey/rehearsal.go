package journey

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

const (
	rehearsalXP        = 100
	rehearsalXPSource  = "practice_conversation"
	rehearsalAttempts  = 3
	rehearsalDoneLine  = "Great job, you finished the conversation practice!"
	rehearsalStartLine = "Your turn. Say:"
)

// RehearsalStep tells the caller what to play and show after a rehearsal
// event.
type RehearsalStep struct {
	AITurns  []int  // partner turns to play, in order
	Prompt   int    // user turn to say next, -1 when none
	Expected string // text of the prompted turn
	Hint     string
	Reveal   string // the full answer once the attempts run out
	Finished bool
	XP       int
	Message  string
}

// RehearsalOption configures a Rehearsal.
type RehearsalOption func(*Rehearsal)

// WithRehearsalLedger records earned XP locally as well.
func WithRehearsalLedger(l domain.ActivityLedger) RehearsalOption {
	return func(r *Rehearsal) { r.ledger = l }
}

// Rehearsal walks the user through a topic's dialogue with the AI partner
// speaking the other role. The user's lines are checked against the
// transcript of what they said.
type Rehearsal struct {
	journey      *Journey
	gamification domain.GamificationRepository
	ledger       domain.ActivityLedger
	log          *logger.Logger

	mu       sync.Mutex
	topic    *domain.Topic
	role     string
	aiRole   string
	current  int
	attempts int
	active   bool
}

// NewRehearsal creates a rehearsal over the journey's selected topic.
func NewRehearsal(j *Journey, gamification domain.GamificationRepository, log *logger.Logger, opts ...RehearsalOption) *Rehearsal {
	r := &Rehearsal{
		journey:      j,
		gamification: gamification,
		log:          log,
		current:      -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ChooseRole starts a rehearsal with the user speaking role.
func (r *Rehearsal) ChooseRole(role string) (*RehearsalStep, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role != domain.SpeakerA && role != domain.SpeakerB {
		return nil, domain.ErrInvalidRole
	}
	topic, _ := r.journey.Current()
	if topic == nil {
		return nil, domain.ErrNoTopic
	}
	if len(topic.Conversation) == 0 {
		return nil, domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.topic = topic
	r.role = role
	r.aiRole = domain.OtherSpeaker(role)
	r.attempts = 0
	r.active = true

	userTurn := topic.NextTurnFor(-1, role)
	aiTurn := topic.NextTurnFor(-1, r.aiRole)
	step := &RehearsalStep{Prompt: -1}
	if aiTurn >= 0 && (userTurn < 0 || aiTurn < userTurn) {
		step.AITurns = []int{aiTurn}
	}
	if userTurn < 0 {
		r.active = false
		step.Finished = true
		return step, nil
	}
	r.current = userTurn
	step.Prompt = userTurn
	step.Expected = topic.Conversation[userTurn].Text
	step.Message = rehearsalStartLine
	return step, nil
}

// OnTranscript checks what the user said against the prompted turn.
func (r *Rehearsal) OnTranscript(ctx context.Context, transcript string) (*RehearsalStep, error) {
	r.mu.Lock()
	if !r.active || r.topic == nil || r.current < 0 {
		r.mu.Unlock()
		return nil, domain.ErrSessionNotActive
	}
	topic := r.topic
	expected := topic.Conversation[r.current].Text

	if !matchesTurn(transcript, expected) {
		r.attempts++
		step := &RehearsalStep{
			Prompt:   r.current,
			Expected: expected,
			Hint:     hint(expected),
		}
		if r.attempts >= rehearsalAttempts {
			step.Reveal = expected
		}
		r.mu.Unlock()
		return step, nil
	}

	r.attempts = 0
	step := &RehearsalStep{Prompt: -1}
	next := -1
	if ai := topic.NextTurnFor(r.current, r.aiRole); ai >= 0 {
		step.AITurns = []int{ai}
		next = topic.NextTurnFor(ai, r.role)
	} else {
		next = topic.NextTurnFor(r.current, r.role)
	}
	if next >= 0 {
		r.current = next
		step.Prompt = next
		step.Expected = topic.Conversation[next].Text
		r.mu.Unlock()
		return step, nil
	}

	r.active = false
	r.current = -1
	r.mu.Unlock()

	step.Finished = true
	step.Message = rehearsalDoneLine
	if err := r.gamification.AddExperience(ctx, rehearsalXP, rehearsalXPSource); err != nil {
		r.log.Warn("rehearsal xp: %v", err)
	} else {
		step.XP = rehearsalXP
	}
	if r.ledger != nil {
		key := r.journey.CurrentUserKey()
		if err := r.ledger.AddXP(ctx, key, rehearsalXPSource, rehearsalXP); err != nil {
			r.log.Warn("ledger xp: %v", err)
		}
		if err := r.ledger.MarkActive(ctx, key, time.Now()); err != nil {
			r.log.Debug("ledger activity: %v", err)
		}
	}
	return step, nil
}

// Active reports whether a rehearsal is running.
func (r *Rehearsal) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Role returns the user's role in the running rehearsal.
func (r *Rehearsal) Role() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.role
}

// Exit abandons the rehearsal.
func (r *Rehearsal) Exit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.topic = nil
	r.role = ""
	r.aiRole = ""
	r.current = -1
	r.attempts = 0
}

// matchesTurn accepts a transcript containing the turn's first clause.
func matchesTurn(transcript, expected string) bool {
	said := strings.ToLower(strings.TrimSpace(transcript))
	if said == "" {
		return false
	}
	want := strings.ToLower(expected)
	if i := strings.Index(want, "."); i >= 0 {
		want = want[:i]
	}
	if i := strings.Index(want, ","); i >= 0 {
		want = want[:i]
	}
	return strings.Contains(said, strings.TrimSpace(want))
}

func hint(expected string) string {
	words := strings.Fields(expected)
	if len(words) <= 2 {
		if len(words) == 0 {
			return "Try saying: ..."
		}
		return "Try saying: " + words[0] + "..."
	}
	return "Try starting with: " + words[0] + " " + words[1] + "..."
}
