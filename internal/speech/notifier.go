package speech

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

var _ domain.Notifier = (*SpeakingNotifier)(nil)

// SpeakingNotifier prints through a text notifier and reads the same
// message aloud. Reminders and results go through it; quiz output is
// spoken by the CLI directly.
type SpeakingNotifier struct {
	text domain.Notifier
	seq  *Sequencer
	log  *logger.Logger
}

// NewSpeakingNotifier wraps text so every message is also spoken.
func NewSpeakingNotifier(text domain.Notifier, seq *Sequencer, log *logger.Logger) *SpeakingNotifier {
	return &SpeakingNotifier{text: text, seq: seq, log: log}
}

func (n *SpeakingNotifier) Notify(ctx context.Context, message string) error {
	return n.send(ctx, message, PriorityNormal, n.text.Notify)
}

// NotifyUrgent cuts ahead of queued coach lines.
func (n *SpeakingNotifier) NotifyUrgent(ctx context.Context, message string) error {
	return n.send(ctx, message, PriorityHigh, n.text.NotifyUrgent)
}

func (n *SpeakingNotifier) send(ctx context.Context, message string, p Priority, print func(context.Context, string) error) error {
	if err := print(ctx, message); err != nil {
		return err
	}
	if spoken := cleanForSpeech(message); spoken != "" {
		n.seq.Say(spoken, p)
	} else {
		n.log.Debug("nothing to speak in %q", message)
	}
	return nil
}

var (
	ansiCodes     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	bracketPrefix = regexp.MustCompile(`^\[[A-Za-z ]+\]\s*`)
	xpAmount      = regexp.MustCompile(`\+?(\d+)\s*XP\b`)
)

// cleanForSpeech drops terminal styling, "[Coach]" style prefixes and
// symbols, and spells out XP amounts so the voice does not read them
// as a word.
func cleanForSpeech(msg string) string {
	s := ansiCodes.ReplaceAllString(msg, "")
	s = bracketPrefix.ReplaceAllString(s, "")
	s = xpAmount.ReplaceAllString(s, "$1 experience points")
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.So, r) || unicode.Is(unicode.Sm, r) && r != '+' && r != '=' {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
