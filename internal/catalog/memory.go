// Package catalog provides the built-in topic catalog used when the
// backend cannot be reached.
package catalog

import (
	"context"
	"sync"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// MemoryCatalog holds topics in memory, in journey order. Safe for
// concurrent reads.
type MemoryCatalog struct {
	mu     sync.RWMutex
	topics []domain.Topic
	log    *logger.Logger
}

// NewMemoryCatalog creates a catalog preloaded with the built-in topics.
func NewMemoryCatalog(log *logger.Logger) *MemoryCatalog {
	c := &MemoryCatalog{log: log}
	c.seed()
	return c
}

// List returns copies of all topics in journey order.
func (c *MemoryCatalog) List(ctx context.Context) ([]domain.Topic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.log.Debug("listing built-in topics, count=%d", len(c.topics))
	out := make([]domain.Topic, len(c.topics))
	copy(out, c.topics)
	return out, nil
}

// Get returns a topic by ID.
func (c *MemoryCatalog) Get(ctx context.Context, id string) (*domain.Topic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.topics {
		if c.topics[i].ID == id {
			t := c.topics[i]
			return &t, nil
		}
	}
	c.log.Debug("topic not found: %s", id)
	return nil, domain.ErrNotFound
}

func (c *MemoryCatalog) seed() {
	c.topics = []domain.Topic{
		{
			ID:          "t1",
			Title:       "Self Introduction",
			Description: "Introduce yourself with simple phrases.",
			Material: []string{
				"Hello! My name is Alex.",
				"I am from San Francisco.",
				"I work as a software developer.",
				"Nice to meet you!",
			},
			Vocabulary: []string{"hello", "name", "from", "work"},
			FluencyPrompts: []string{
				"Introduce yourself: name, where you're from, what you do, and one hobby.",
				"Give a short self-introduction for a new class or team meeting.",
				"Explain one fun fact about yourself.",
			},
			FluencyProgress: &domain.FluencyProgress{PromptsCount: 3},
			PhraseProgress:  &domain.PhraseProgress{TotalPhrases: 4},
			Unlocked:        true,
		},
		{
			ID:          "t2",
			Title:       "Ordering at a Cafe",
			Description: "Order drinks and snacks politely and handle small talk with the barista.",
			Material: []string{
				"Could I get a medium latte, please?",
				"Do you have any pastries without nuts?",
				"I'll pay by card.",
				"Thanks, have a nice day!",
			},
			Vocabulary: []string{"latte", "pastry", "receipt", "to go"},
			Conversation: []domain.ConversationTurn{
				{Speaker: domain.SpeakerA, Text: "Hi there, what can I get for you?"},
				{Speaker: domain.SpeakerB, Text: "Could I get a medium latte, please?"},
				{Speaker: domain.SpeakerA, Text: "Sure. For here or to go?"},
				{Speaker: domain.SpeakerB, Text: "To go, thanks."},
				{Speaker: domain.SpeakerA, Text: "That's four fifty. Card or cash?"},
				{Speaker: domain.SpeakerB, Text: "I'll pay by card."},
			},
			PhraseProgress: &domain.PhraseProgress{TotalPhrases: 4},
		},
	}
}
