package journey

import (
	"context"
	"strings"
	"sync"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// TurnOutcome is the result of one conversation-turn submission.
type TurnOutcome struct {
	Index    int
	Result   *domain.TurnResult
	Score    int
	Finished bool   // the user has no turns left
	Err      string // user-facing, empty on success
}

// ConversationFlow is conversation practice: the user picks a role and
// records each of that role's turns.
type ConversationFlow struct {
	journey *Journey
	repo    domain.JourneyRepository
	log     *logger.Logger

	mu       sync.Mutex
	role     string
	scores   map[int]int
	last     *TurnOutcome
	congrats bool
}

// NewConversationFlow creates the conversation flow.
func NewConversationFlow(j *Journey, repo domain.JourneyRepository, log *logger.Logger) *ConversationFlow {
	return &ConversationFlow{
		journey: j,
		repo:    repo,
		log:     log,
		scores:  make(map[int]int),
	}
}

// SetRole selects speaker A or B. Input is trimmed and case-insensitive.
func (c *ConversationFlow) SetRole(role string) error {
	r := strings.ToUpper(strings.TrimSpace(role))
	if r != domain.SpeakerA && r != domain.SpeakerB {
		return domain.ErrInvalidRole
	}
	c.mu.Lock()
	c.role = r
	c.mu.Unlock()
	return nil
}

// Role returns the chosen role, empty before SetRole.
func (c *ConversationFlow) Role() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// SubmitTurn uploads the recording of turn index, spoken in the chosen
// role.
func (c *ConversationFlow) SubmitTurn(ctx context.Context, index int, audioPath string) (*TurnOutcome, error) {
	topic, _ := c.journey.Current()
	if topic == nil {
		return nil, domain.ErrNoTopic
	}
	role := c.Role()
	if role == "" {
		return nil, domain.ErrInvalidRole
	}
	if index < 0 || index >= len(topic.Conversation) {
		return nil, domain.ErrNotFound
	}
	if audioPath == "" {
		out := &TurnOutcome{Index: index, Err: "Recording not available."}
		c.setLast(out)
		return out, nil
	}

	res, err := c.repo.SubmitConversationTurn(ctx, topic.ID, index, audioPath, role)
	if err != nil {
		c.log.Error("turn submit: %v", err)
		out := &TurnOutcome{Index: index, Err: "Failed to process recording. " + err.Error()}
		c.setLast(out)
		return out, nil
	}

	out := &TurnOutcome{Index: index, Result: res, Score: int(res.Accuracy)}
	c.mu.Lock()
	c.scores[index] = out.Score
	c.mu.Unlock()
	c.journey.MarkSpeakingActivity(ctx)

	if res.NextTurnIndex == nil || !topic.HasTurnsAfter(index, role) {
		out.Finished = true
		c.mu.Lock()
		c.congrats = true
		c.mu.Unlock()
		if err := c.journey.ReloadTopics(ctx); err != nil {
			c.log.Warn("reload after conversation: %v", err)
		}
	}
	if _, err := c.journey.RefreshProfile(ctx); err != nil {
		c.log.Debug("profile refresh: %v", err)
	}
	c.setLast(out)
	return out, nil
}

func (c *ConversationFlow) setLast(o *TurnOutcome) {
	c.mu.Lock()
	c.last = o
	c.mu.Unlock()
}

// LastResult returns the most recent turn outcome, or nil.
func (c *ConversationFlow) LastResult() *TurnOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// DismissResult clears the last turn outcome.
func (c *ConversationFlow) DismissResult() {
	c.setLast(nil)
}

// TurnScores returns the score per turn index submitted so far.
func (c *ConversationFlow) TurnScores() map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]int, len(c.scores))
	for k, v := range c.scores {
		out[k] = v
	}
	return out
}

// ShowCongrats reports whether the conversation was just finished.
func (c *ConversationFlow) ShowCongrats() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.congrats
}

// DismissCongrats hides the completion message.
func (c *ConversationFlow) DismissCongrats() {
	c.mu.Lock()
	c.congrats = false
	c.mu.Unlock()
}

// Reset forgets the role and scores, e.g. after selecting another topic.
func (c *ConversationFlow) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = ""
	c.scores = make(map[int]int)
	c.last = nil
	c.congrats = false
}
