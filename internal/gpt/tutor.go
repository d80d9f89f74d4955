package gpt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Tutor wraps the Client with topic context. It is the single entry point
// the CLI calls for AI-powered features.
type Tutor struct {
	client *Client
	log    *logger.Logger
}

// NewTutor creates a tutor backed by the given Client.
func NewTutor(client *Client, log *logger.Logger) *Tutor {
	return &Tutor{client: client, log: log}
}

// Chat sends one user message in a topic-scoped conversation. history
// holds the earlier turns, oldest first. Replies that are not the
// expected JSON are returned as plain text with no actions.
func (t *Tutor) Chat(ctx context.Context, topic *domain.Topic, history []Message, message string) (*Reply, error) {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, TextMessage(RoleSystem, promptTutor+"\n\n"+buildTopicContext(topic)))
	msgs = append(msgs, history...)
	msgs = append(msgs, TextMessage(RoleUser, message))

	raw, err := t.client.ChatJSON(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return parseReply(raw, t.log), nil
}

func parseReply(raw string, log *logger.Logger) *Reply {
	clean := stripCodeFence(raw)
	var r Reply
	if err := json.Unmarshal([]byte(clean), &r); err != nil || (strings.TrimSpace(r.Reply) == "" && len(r.Actions) == 0) {
		if err != nil {
			log.Debug("gpt: tutor reply is not JSON: %v", err)
		}
		return &Reply{Reply: strings.TrimSpace(raw)}
	}
	r.Reply = strings.TrimSpace(r.Reply)
	return &r
}

// ExplainTurn explains one conversation line in the topic's context.
func (t *Tutor) ExplainTurn(ctx context.Context, topic *domain.Topic, text string) (string, error) {
	msgs := []Message{
		TextMessage(RoleSystem, promptExplain+"\n\n"+buildTopicContext(topic)),
		TextMessage(RoleUser, fmt.Sprintf("Explain this line: %q", text)),
	}
	reply, err := t.client.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

type questionsResponse struct {
	Questions []GeneratedQuestion `json:"questions"`
}

// GenerateQuestions writes up to n multiple-choice questions for a quiz
// mode. Malformed questions are dropped; none left is ErrNoQuestions.
func (t *Tutor) GenerateQuestions(ctx context.Context, topic *domain.Topic, mode domain.PracticeMode, n int) ([]GeneratedQuestion, error) {
	var instr string
	switch mode {
	case domain.ModeVocabulary:
		instr = questionsVocabulary
	case domain.ModeGrammar:
		instr = questionsGrammar
	case domain.ModeListening:
		instr = questionsListening
	default:
		return nil, fmt.Errorf("gpt: %s is not a quiz mode", mode)
	}
	msgs := []Message{
		TextMessage(RoleSystem, promptQuestions+"\n"+instr+"\n\n"+buildTopicContext(topic)),
		TextMessage(RoleUser, fmt.Sprintf("Write %d questions.", n)),
	}
	raw, err := t.client.ChatJSON(ctx, msgs)
	if err != nil {
		return nil, err
	}

	var resp questionsResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		t.log.Error("gpt: failed to parse questions JSON: %v\nraw: %s", err, truncate(raw, 300))
		return nil, fmt.Errorf("gpt: parse questions: %w", err)
	}

	var out []GeneratedQuestion
	for _, q := range resp.Questions {
		if valid(q) {
			out = append(out, q)
		}
		if len(out) == n {
			break
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNoQuestions
	}
	t.log.Debug("gpt: generated %d %s questions for %s", len(out), mode, topic.ID)
	return out, nil
}

func valid(q GeneratedQuestion) bool {
	if strings.TrimSpace(q.Question) == "" || len(q.Options) < 2 {
		return false
	}
	for _, o := range q.Options {
		if o == q.Answer {
			return true
		}
	}
	return false
}

type classifyResponse struct {
	Intent  string `json:"intent"`
	Payload string `json:"payload"`
}

// Classify maps input the local parser did not understand to an intent.
// Returns IntentUnknown if classification fails.
func (t *Tutor) Classify(ctx context.Context, input string) (*domain.Intent, error) {
	msgs := []Message{
		TextMessage(RoleSystem, promptClassify),
		TextMessage(RoleUser, input),
	}
	raw, err := t.client.ChatJSON(ctx, msgs)
	if err != nil {
		return nil, err
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &resp); err != nil {
		t.log.Error("gpt: failed to parse classify JSON: %v\nraw: %s", err, raw)
		return &domain.Intent{Type: domain.IntentUnknown, Payload: input}, nil
	}

	intentType := domain.IntentFromString(resp.Intent)
	t.log.Debug("gpt: classified %q -> %s (payload=%q)", input, intentType, resp.Payload)

	payload := resp.Payload
	if payload == "" {
		payload = input
	}
	return &domain.Intent{Type: intentType, Payload: payload}, nil
}

// stripCodeFence removes ```json ... ``` wrappers that LLMs love to add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// buildTopicContext serializes the topic material into a plain-text block
// the model can reason over.
func buildTopicContext(topic *domain.Topic) string {
	if topic == nil {
		return "[No topic selected.]"
	}
	var b strings.Builder
	b.WriteString("Topic details:\n")
	fmt.Fprintf(&b, "Title: %s\n", topic.Title)
	if topic.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", topic.Description)
	}
	if len(topic.Material) > 0 {
		b.WriteString("Phrases:\n")
		for _, p := range topic.Material {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if len(topic.Vocabulary) > 0 {
		fmt.Fprintf(&b, "Vocabulary: %s\n", strings.Join(topic.Vocabulary, ", "))
	}
	if len(topic.Conversation) > 0 {
		b.WriteString("Conversation example:\n")
		for _, turn := range topic.Conversation {
			fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.Text)
		}
	}
	return b.String()
}

// History keeps the most recent chat turns for a topic.
type History struct {
	max  int
	msgs []Message
}

// NewHistory keeps at most limit messages.
func NewHistory(limit int) *History {
	return &History{max: limit}
}

// Add appends a message, dropping the oldest beyond the limit.
func (h *History) Add(role, text string) {
	h.msgs = append(h.msgs, TextMessage(role, text))
	if h.max > 0 && len(h.msgs) > h.max {
		h.msgs = append([]Message(nil), h.msgs[len(h.msgs)-h.max:]...)
	}
}

// Messages returns the kept messages, oldest first.
func (h *History) Messages() []Message {
	return append([]Message(nil), h.msgs...)
}

// Reset forgets everything, e.g. when the topic changes.
func (h *History) Reset() { h.msgs = nil }
