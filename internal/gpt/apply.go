package gpt

import (
	"context"
	"errors"
	"fmt"
)

// ActionHandler performs the tutor's actions. The CLI implements it over
// the journey, the rehearsal, and the audio sequencer.
type ActionHandler interface {
	AwardXP(ctx context.Context, points int, reason string) error
	ShowPracticeMenu(ctx context.Context) error
	ShowConversationExample(ctx context.Context) error
	StartPracticeConversation(ctx context.Context) error
	PlayPracticeTurn(ctx context.Context) error
	PromptUserRecording(ctx context.Context) error
	ShowPracticeHint(ctx context.Context) error
	RevealCorrectAnswer(ctx context.Context) error
}

// Apply runs actions in order. A failed action does not stop the ones
// after it; all failures are returned joined.
func Apply(ctx context.Context, actions []Action, topicID string, h ActionHandler) error {
	var errs []error
	for i, act := range actions {
		if err := applyOne(ctx, act, topicID, h); err != nil {
			errs = append(errs, fmt.Errorf("action %d (%s): %w", i+1, act.Type, err))
		}
	}
	return errors.Join(errs...)
}

func applyOne(ctx context.Context, act Action, topicID string, h ActionHandler) error {
	switch act.Type {
	case ActionAwardXP:
		if act.Points <= 0 {
			return fmt.Errorf("invalid points: %d", act.Points)
		}
		return h.AwardXP(ctx, act.Points, xpReason(act, topicID))
	case ActionShowPracticeMenu:
		return h.ShowPracticeMenu(ctx)
	case ActionShowConversationExample:
		return h.ShowConversationExample(ctx)
	case ActionStartPracticeConversation:
		return h.StartPracticeConversation(ctx)
	case ActionPlayPracticeTurn:
		return h.PlayPracticeTurn(ctx)
	case ActionPromptUserRecording:
		return h.PromptUserRecording(ctx)
	case ActionShowPracticeHint:
		return h.ShowPracticeHint(ctx)
	case ActionRevealCorrectAnswer:
		return h.RevealCorrectAnswer(ctx)
	default:
		return fmt.Errorf("unknown action type: %s", act.Type)
	}
}

// xpReason defaults to "topic_practice:<topic>".
func xpReason(act Action, topicID string) string {
	if act.Reason != "" {
		return act.Reason
	}
	if act.TopicID != "" {
		topicID = act.TopicID
	}
	return "topic_practice:" + topicID
}
