package speech

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

var _ domain.Synthesizer = (*AzureClient)(nil)

// AzureOption configures an AzureClient.
type AzureOption func(*AzureClient)

// WithVoice sets the voice used when a call does not name one.
func WithVoice(voice string) AzureOption {
	return func(c *AzureClient) { c.voice = voice }
}

// WithAudioFormat sets the X-Microsoft-OutputFormat value.
func WithAudioFormat(format string) AzureOption {
	return func(c *AzureClient) { c.format = format }
}

// WithRate sets the SSML prosody rate, e.g. "-15%" to slow the dialogue
// down for beginners. Empty keeps the voice's natural pace.
func WithRate(rate string) AzureOption {
	return func(c *AzureClient) { c.rate = rate }
}

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) { c.http.Timeout = d }
}

// WithEndpoint replaces the regional endpoint.
func WithEndpoint(url string) AzureOption {
	return func(c *AzureClient) { c.endpoint = url }
}

// AzureClient synthesizes coach lines and dialogue turns with the Azure
// Speech REST API.
type AzureClient struct {
	key      string
	endpoint string
	voice    string
	format   string
	rate     string
	http     *http.Client
	log      *logger.Logger
}

// NewAzureClient creates a client for the given subscription key and region.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		key:      key,
		endpoint: fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		voice:    DefaultVoice,
		format:   DefaultAudioFormat,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Voice returns the default voice.
func (c *AzureClient) Voice() string { return c.voice }

// Synthesize returns WAV audio for text. An empty voice uses the default.
func (c *AzureClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = c.voice
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(ssml(voice, c.rate, text)))
	if err != nil {
		return nil, fmt.Errorf("speech: azure: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "VoiceVibe/1.0")

	c.log.Debug("azure: %d chars as %s", len(text), voice)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: azure: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: azure: reading audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech: azure: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// ssml wraps text for one voice. Learner text can contain quotes and
// ampersands, so both names and text are escaped.
func ssml(voice, rate, text string) string {
	inner := html.EscapeString(text)
	if rate != "" {
		inner = fmt.Sprintf(`<prosody rate='%s'>%s</prosody>`, html.EscapeString(rate), inner)
	}
	return fmt.Sprintf(`<speak version='1.0' xml:lang='en-US'><voice xml:lang='en-US' name='%s'>%s</voice></speak>`,
		html.EscapeString(voice), inner)
}
