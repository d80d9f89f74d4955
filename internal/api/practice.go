package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hammamikhairi/voicevibe/internal/domain"
)

func modePath(topicID string, mode domain.PracticeMode, action string) string {
	return topicPath(topicID, mode.String(), action)
}

// StartPractice starts a quiz session for a topic.
func (c *Client) StartPractice(ctx context.Context, topicID string, mode domain.PracticeMode) (*domain.PracticeStart, error) {
	if !mode.IsQuiz() {
		return nil, fmt.Errorf("api: %s is not a quiz mode", mode)
	}
	var resp practiceStartDTO
	if err := c.doJSON(ctx, http.MethodPost, modePath(topicID, mode, "start"), nil, &resp); err != nil {
		return nil, err
	}
	start := &domain.PracticeStart{
		SessionID:      resp.SessionID,
		TotalQuestions: resp.TotalQuestions,
	}
	for _, q := range resp.Questions {
		start.Questions = append(start.Questions, domain.Question{ID: q.ID, Prompt: q.Question, Options: q.Options})
	}
	if start.TotalQuestions == 0 {
		start.TotalQuestions = len(start.Questions)
	}
	return start, nil
}

// SubmitAnswer sends the selected option for a question.
func (c *Client) SubmitAnswer(ctx context.Context, topicID string, mode domain.PracticeMode, sessionID, questionID, selected string) (*domain.AnswerResult, error) {
	var resp answerDTO
	req := answerRequest{SessionID: sessionID, QuestionID: questionID, Selected: selected}
	if err := c.doJSON(ctx, http.MethodPost, modePath(topicID, mode, "submit"), req, &resp); err != nil {
		return nil, err
	}
	return &domain.AnswerResult{
		Correct:    resp.Correct,
		XPAwarded:  resp.XPAwarded,
		TotalScore: resp.TotalScore,
		NextIndex:  resp.NextIndex,
		Completed:  resp.Completed,
	}, nil
}

// CompletePractice finishes a quiz session.
func (c *Client) CompletePractice(ctx context.Context, topicID string, mode domain.PracticeMode, sessionID string) (*domain.CompletionResult, error) {
	var resp completionDTO
	if err := c.doJSON(ctx, http.MethodPost, modePath(topicID, mode, "complete"), sessionRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &domain.CompletionResult{
		TotalScore:     resp.TotalScore,
		TotalQuestions: resp.TotalQuestions,
		XPAwarded:      resp.XPAwarded,
		CorrectCount:   resp.CorrectCount,
	}, nil
}

// PromptsByCategory lists the practice prompts filed under category.
func (c *Client) PromptsByCategory(ctx context.Context, category string) ([]domain.PracticePrompt, error) {
	var resp []promptDTO
	if err := c.doJSON(ctx, http.MethodGet, "api/practice/prompts/category/"+url.PathEscape(category), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.PracticePrompt, 0, len(resp))
	for _, p := range resp {
		out = append(out, p.toDomain())
	}
	return out, nil
}

// RandomPrompt returns any practice prompt.
func (c *Client) RandomPrompt(ctx context.Context) (*domain.PracticePrompt, error) {
	var resp promptDTO
	if err := c.doJSON(ctx, http.MethodGet, "api/practice/prompts/random", nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, domain.ErrNoPrompt
	}
	p := resp.toDomain()
	return &p, nil
}

// SubmitRecording sends a recording to the practice pipeline and returns
// the new session id.
func (c *Client) SubmitRecording(ctx context.Context, promptID, audioPath string) (string, error) {
	var resp submissionDTO
	path := "api/practice/sessions/submit/" + url.PathEscape(promptID)
	if err := c.doMultipart(ctx, path, audioPath, nil, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// Evaluation fetches the analysis of a practice session. The transcript
// comes from the session itself; a missing session only loses it.
func (c *Client) Evaluation(ctx context.Context, sessionID string) (*domain.FluencyEvaluation, error) {
	base := "api/practice/sessions/" + url.PathEscape(sessionID)

	var eval evaluationDTO
	if err := c.doJSON(ctx, http.MethodGet, base+"/evaluation", nil, &eval); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("api: evaluation %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, err
	}

	out := &domain.FluencyEvaluation{
		SessionID:    eval.SessionID,
		Feedback:     eval.Feedback,
		OverallScore: eval.OverallScore,
		Pauses:       eval.Pauses,
		StutterCount: intOr(eval.Stutters, 0),
	}
	if out.SessionID == "" {
		out.SessionID = sessionID
	}
	for _, pe := range eval.PhoneticErrors {
		if pe.Word != "" {
			out.Mispronunciations = append(out.Mispronunciations, pe.Word)
		}
	}

	var sess sessionDTO
	if err := c.doJSON(ctx, http.MethodGet, base, nil, &sess); err != nil {
		c.log.Warn("api: session %s: %v", sessionID, err)
	} else {
		out.Transcript = deref(sess.Transcription)
	}
	return out, nil
}
