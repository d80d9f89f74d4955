package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hammamikhairi/voicevibe/internal/domain"
)

var _ domain.Synthesizer = (*Client)(nil)

// Synthesize generates speech on the backend and downloads the WAV it
// points at. Relative audio URLs resolve against the API root.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	res, err := c.GenerateTTS(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	url := res.AudioURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = c.url(url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("api: create audio request: %w", err)
	}
	if c.token != "" && strings.HasPrefix(url, c.base) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Method: http.MethodGet, Path: res.AudioURL, Code: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read audio: %w", err)
	}
	c.log.Debug("api: tts %d bytes (voice=%s)", len(data), res.VoiceName)
	return data, nil
}
