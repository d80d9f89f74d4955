package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
)

// Compile-time interface checks.
var (
	_ domain.JourneyRepository      = (*Client)(nil)
	_ domain.PracticeRepository     = (*Client)(nil)
	_ domain.GamificationRepository = (*Client)(nil)
)

func topicPath(topicID string, rest ...string) string {
	p := "speaking/topics/" + url.PathEscape(topicID)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// Topics fetches every topic with the user's journey profile.
func (c *Client) Topics(ctx context.Context) (*domain.TopicsPage, error) {
	var resp topicsResponse
	if err := c.doJSON(ctx, http.MethodGet, "speaking/topics", nil, &resp); err != nil {
		return nil, err
	}
	page := &domain.TopicsPage{
		Topics: make([]domain.Topic, 0, len(resp.Topics)),
		Profile: domain.UserProfile{
			FirstVisit:            resp.UserProfile.FirstVisit,
			LastVisitedTopicID:    deref(resp.UserProfile.LastVisitedTopicID),
			LastVisitedTopicTitle: deref(resp.UserProfile.LastVisitedTopicTitle),
		},
	}
	for _, t := range resp.Topics {
		page.Topics = append(page.Topics, t.toDomain())
	}
	return page, nil
}

// UpdateLastVisitedTopic records where the user left off.
func (c *Client) UpdateLastVisitedTopic(ctx context.Context, topicID string) error {
	return c.doJSON(ctx, http.MethodPost, "speaking/topics", lastVisitedRequest{LastVisitedTopicID: topicID}, nil)
}

// CompleteTopic marks a topic complete and reports what it unlocked.
func (c *Client) CompleteTopic(ctx context.Context, topicID string) (*domain.TopicCompletion, error) {
	var resp completeTopicResponse
	if err := c.doJSON(ctx, http.MethodPost, topicPath(topicID, "complete"), nil, &resp); err != nil {
		return nil, err
	}
	return &domain.TopicCompletion{
		Success:          resp.Success,
		Message:          resp.Message,
		CompletedTopicID: resp.CompletedTopicID,
		UnlockedTopicID:  deref(resp.UnlockedTopicID),
	}, nil
}

// SubmitPhraseRecording uploads a pronunciation attempt.
func (c *Client) SubmitPhraseRecording(ctx context.Context, topicID string, phraseIndex int, audioPath string) (*domain.PhraseResult, error) {
	var resp phraseResultDTO
	fields := map[string]string{"phraseIndex": strconv.Itoa(phraseIndex)}
	if err := c.doMultipart(ctx, topicPath(topicID, "phrases", "submit"), audioPath, fields, &resp); err != nil {
		return nil, err
	}
	return &domain.PhraseResult{
		Success:         resp.Success,
		Accuracy:        resp.Accuracy,
		Transcription:   resp.Transcription,
		Feedback:        resp.Feedback,
		NextPhraseIndex: resp.NextPhraseIndex,
		TopicCompleted:  resp.TopicCompleted,
		XPAwarded:       resp.XPAwarded,
		RecordingID:     deref(resp.RecordingID),
		AudioURL:        deref(resp.AudioURL),
	}, nil
}

// PhraseRecordings lists the user's past phrase submissions for a topic.
func (c *Client) PhraseRecordings(ctx context.Context, topicID string) ([]domain.PhraseRecording, error) {
	var resp recordingsResponse
	if err := c.doJSON(ctx, http.MethodGet, topicPath(topicID, "recordings"), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.PhraseRecording, 0, len(resp.Recordings))
	for _, r := range resp.Recordings {
		out = append(out, domain.PhraseRecording{
			ID:            r.ID,
			PhraseIndex:   r.PhraseIndex,
			AudioURL:      r.AudioURL,
			Transcription: r.Transcription,
			Accuracy:      r.Accuracy,
			Feedback:      r.Feedback,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

// SubmitConversationTurn uploads one conversation turn spoken as role.
func (c *Client) SubmitConversationTurn(ctx context.Context, topicID string, turnIndex int, audioPath, role string) (*domain.TurnResult, error) {
	var resp turnResultDTO
	fields := map[string]string{
		"turnIndex": strconv.Itoa(turnIndex),
		"role":      role,
	}
	if err := c.doMultipart(ctx, topicPath(topicID, "conversation", "submit"), audioPath, fields, &resp); err != nil {
		return nil, err
	}
	return &domain.TurnResult{
		Success:        resp.Success,
		Accuracy:       resp.Accuracy,
		Transcription:  resp.Transcription,
		Feedback:       resp.Feedback,
		NextTurnIndex:  resp.NextTurnIndex,
		TopicCompleted: resp.TopicCompleted,
		XPAwarded:      resp.XPAwarded,
	}, nil
}

// SubmitFluencyRecording uploads a fluency recording with its length in
// whole seconds.
func (c *Client) SubmitFluencyRecording(ctx context.Context, topicID, audioPath string, duration time.Duration) (*domain.FluencySubmission, error) {
	var resp fluencySubmitDTO
	fields := map[string]string{"recordingDuration": strconv.Itoa(int(duration.Seconds()))}
	if err := c.doMultipart(ctx, topicPath(topicID, "fluency", "submit"), audioPath, fields, &resp); err != nil {
		return nil, err
	}
	return &domain.FluencySubmission{
		SessionID:     resp.SessionID,
		Transcription: resp.Transcription,
		Feedback:      resp.Feedback,
		Suggestions:   resp.Suggestions,
	}, nil
}

// SubmitFluencyPromptScore records the locally computed score of a prompt.
func (c *Client) SubmitFluencyPromptScore(ctx context.Context, topicID string, promptIndex, score int, sessionID string) (*domain.PromptScoreResult, error) {
	var resp promptScoreDTO
	req := promptScoreRequest{PromptIndex: promptIndex, Score: score, SessionID: sessionID}
	if err := c.doJSON(ctx, http.MethodPost, topicPath(topicID, "fluency", "score"), req, &resp); err != nil {
		return nil, err
	}
	return &domain.PromptScoreResult{
		Success:      resp.Success,
		PromptScores: resp.PromptScores,
		TotalScore:   resp.TotalScore,
		Completed:    resp.Completed,
	}, nil
}

// GenerateTTS asks the backend to synthesize text.
func (c *Client) GenerateTTS(ctx context.Context, text, voice string) (*domain.TTSResult, error) {
	var resp ttsResponse
	if err := c.doJSON(ctx, http.MethodPost, "speaking/tts/generate", ttsRequest{Text: text, VoiceName: voice}, &resp); err != nil {
		return nil, err
	}
	if resp.AudioURL == "" {
		return nil, fmt.Errorf("api: tts: empty audio url")
	}
	return &domain.TTSResult{
		AudioURL:   resp.AudioURL,
		SampleRate: resp.SampleRate,
		VoiceName:  deref(resp.VoiceName),
	}, nil
}
