// Package gpt provides an OpenAI-compatible chat client and the topic
// tutor built on it: free chat about a topic, line explanations, and
// generated quiz questions for offline practice.
package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/logger"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextMessage builds a message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

type chatRequest struct {
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	TopP           float64         `json:"top_p"`
	MaxTokens      int             `json:"max_tokens"`
	Model          string          `json:"model,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// ErrNoChoices is returned when the endpoint answers without a completion.
var ErrNoChoices = errors.New("gpt: response has no choices")

// APIError is a non-200 answer from the chat endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gpt: endpoint returned %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the endpoint asked us to slow down.
func (e *APIError) RateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithModel sets the model name. Azure deployments leave it empty.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// WithMaxTokens sets the response token limit.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	topP        float64
	maxTokens   int
	http        *http.Client
	log         *logger.Logger
}

// NewClient creates a chat client. endpoint is the full URL of the
// chat/completions resource. Azure endpoints authenticate with an api-key
// header, everything else with a bearer token.
func NewClient(endpoint, apiKey string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		apiKey:      apiKey,
		temperature: 0.6,
		topP:        0.95,
		maxTokens:   600,
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat sends a chat-completion request and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, messages, false)
}

// ChatJSON is Chat with the JSON response format requested.
func (c *Client) ChatJSON(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, messages, true)
}

func (c *Client) complete(ctx context.Context, messages []Message, jsonMode bool) (string, error) {
	body := chatRequest{
		Messages:    messages,
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
		Model:       c.model,
	}
	if jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gpt: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("gpt: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	c.log.Debug("POST %s (%d messages, json=%t)", c.endpoint, len(messages), jsonMode)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gpt: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gpt: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), 200)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gpt: decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	reply := out.Choices[0].Message.Content
	c.log.Debug("reply (%d chars): %s", len(reply), truncate(reply, 120))
	return reply, nil
}

// authorize sets the api-key header for Azure OpenAI deployments and a
// bearer token for everything else.
func (c *Client) authorize(req *http.Request) {
	if strings.Contains(req.URL.Host, ".azure.com") {
		req.Header.Set("api-key", c.apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
