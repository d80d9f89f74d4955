package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/gpt"
	"github.com/hammamikhairi/voicevibe/internal/journey"
)

var _ gpt.ActionHandler = (*tutorActions)(nil)

// tutorActions runs the tutor's requested actions against the app.
type tutorActions struct {
	app *cliApp
}

func (t *tutorActions) AwardXP(ctx context.Context, points int, reason string) error {
	a := t.app
	if err := a.gamification.AddExperience(ctx, points, reason); err != nil {
		return fmt.Errorf("award xp: %w", err)
	}
	if a.ledger != nil {
		key := a.journey.CurrentUserKey()
		if err := a.ledger.AddXP(ctx, key, reason, points); err != nil {
			a.log.Warn("ledger xp: %v", err)
		}
		if err := a.ledger.MarkActive(ctx, key, time.Now()); err != nil {
			a.log.Debug("ledger activity: %v", err)
		}
	}
	a.ui.PrintCorrect(fmt.Sprintf("+%d XP", points))
	if _, err := a.journey.RefreshProfile(ctx); err != nil {
		a.log.Debug("profile refresh: %v", err)
	}
	return nil
}

func (t *tutorActions) ShowPracticeMenu(context.Context) error {
	t.app.showModes()
	return nil
}

func (t *tutorActions) ShowConversationExample(context.Context) error {
	topic, err := t.topic()
	if err != nil {
		return err
	}
	t.app.showConversation(topic)
	return nil
}

// StartPracticeConversation keeps the current rehearsal role, or starts as A.
func (t *tutorActions) StartPracticeConversation(ctx context.Context) error {
	role := t.app.rehearsal.Role()
	if role == "" {
		role = domain.SpeakerA
	}
	t.app.rehearse(ctx, role)
	return nil
}

// PlayPracticeTurn replays the partner's last lines, or the first turn
// when no rehearsal has run yet.
func (t *tutorActions) PlayPracticeTurn(ctx context.Context) error {
	topic, err := t.topic()
	if err != nil {
		return err
	}
	if len(topic.Conversation) == 0 {
		return domain.ErrNotFound
	}
	turns := []int{0}
	if step := t.lastStep(); step != nil && len(step.AITurns) > 0 {
		turns = step.AITurns
	}
	t.app.playTurns(ctx, topic, turns)
	return nil
}

func (t *tutorActions) PromptUserRecording(context.Context) error {
	if t.app.ear != nil {
		t.app.ui.PrintHint("Your turn: say listen and speak, or type say <your line>.")
	} else {
		t.app.ui.PrintHint("Your turn: type say <your line>.")
	}
	return nil
}

func (t *tutorActions) ShowPracticeHint(context.Context) error {
	step := t.lastStep()
	if step == nil || step.Expected == "" {
		return domain.ErrSessionNotActive
	}
	words := strings.Fields(step.Expected)
	if len(words) > 3 {
		words = append(words[:3], "...")
	}
	t.app.ui.PrintHint("Hint: " + strings.Join(words, " "))
	return nil
}

func (t *tutorActions) RevealCorrectAnswer(context.Context) error {
	step := t.lastStep()
	if step == nil || step.Expected == "" {
		return domain.ErrSessionNotActive
	}
	t.app.ui.PrintUrgent("The line is: " + step.Expected)
	return nil
}

func (t *tutorActions) topic() (*domain.Topic, error) {
	topic, _ := t.app.journey.Current()
	if topic == nil {
		return nil, domain.ErrNoTopic
	}
	return topic, nil
}

func (t *tutorActions) lastStep() *journey.RehearsalStep {
	t.app.mu.Lock()
	defer t.app.mu.Unlock()
	return t.app.lastStep
}
