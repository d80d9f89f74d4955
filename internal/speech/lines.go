// Package speech: lines.go holds every coach line the app prints
// or speaks. Keep lines short and direct; the TTS engine handles
// inflection.
package speech

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ── Greeting / Global ────────────────────────────────────────────

func LineWelcome() string {
	return "Welcome to VoiceVibe. Say topics to see your speaking journey."
}

func LineWelcomeBack(title string) string {
	return fmt.Sprintf("Welcome back. Let's continue with %s.", title)
}

func LineBye() string {
	return "Bye. Keep practicing."
}

func LineUnknown(input string) string {
	return fmt.Sprintf("Didn't catch that: %s. Type help for commands.", input)
}

// ── Topics ───────────────────────────────────────────────────────

func LineTopicSelected(title string, phrases, turns int) string {
	return fmt.Sprintf("%s. %d phrases and a %d-line conversation. Pick a practice mode.", title, phrases, turns)
}

func LineTopicLocked(title string) string {
	return fmt.Sprintf("%s is still locked. Finish the earlier topics first.", title)
}

func LineInvalidSelection(payload string) string {
	return fmt.Sprintf("Invalid selection: %s. Pick a number from the list.", payload)
}

func LinePickTopicFirst() string {
	return "Pick a topic first."
}

func LineTopicCompleted(title string) string {
	return fmt.Sprintf("Topic complete: %s. The next one is unlocked.", title)
}

// ── Quiz practice ────────────────────────────────────────────────

func LineQuizStart(mode string, total int) string {
	return fmt.Sprintf("%s practice. %d questions. Answer with the option number.", capitalize(mode), total)
}

func LineListeningIntro() string {
	return "Listen first, then say reveal to see the questions."
}

func LineQuestion(n, total int, prompt string) string {
	return fmt.Sprintf("Question %d of %d. %s", n, total, prompt)
}

func LineCorrect(xp int) string {
	if xp > 0 {
		return fmt.Sprintf("Correct. Plus %d XP.", xp)
	}
	return "Correct."
}

func LineIncorrect() string {
	return "Not quite."
}

func LineQuizDone(mode string, score, correct, total, xp int) string {
	return fmt.Sprintf("%s complete. %d of %d correct, score %d, %d XP earned.", capitalize(mode), correct, total, score, xp)
}

func LineNoQuiz() string {
	return "No quiz in progress. Say grammar, vocab, or listening to start one."
}

func LineStillSubmitting() string {
	return "Hold on, still checking your last answer."
}

// ── Fluency ──────────────────────────────────────────────────────

func LineFluencyPrompt(prompt string) string {
	return fmt.Sprintf("Fluency practice. %s Say record when you're ready. You have 30 seconds.", prompt)
}

func LineRecording() string {
	return "Recording. Say stop when you're done."
}

func LineRecordingPaused() string {
	return "Recording paused."
}

func LineRecordingResumed() string {
	return "Recording resumed."
}

func LineTimeUp() string {
	return "Time's up. Submitting your recording."
}

func LineFluencyResult(score, xp int, completed bool) string {
	if completed {
		return fmt.Sprintf("Fluency score %d. Great flow, prompt complete. Plus %d XP.", score, xp)
	}
	return fmt.Sprintf("Fluency score %d. Plus %d XP. Aim for 75 to complete the prompt.", score, xp)
}

// ── Pronunciation / conversation ─────────────────────────────────

func LinePhraseTarget(n, total int, phrase string) string {
	return fmt.Sprintf("Phrase %d of %d: %s", n, total, phrase)
}

func LinePhraseResult(accuracy float64, feedback string) string {
	if feedback == "" {
		return fmt.Sprintf("Accuracy %.0f percent.", accuracy)
	}
	return fmt.Sprintf("Accuracy %.0f percent. %s", accuracy, feedback)
}

func LineRoleChosen(role string) string {
	return fmt.Sprintf("You are speaker %s.", role)
}

func LineTurnResult(n int, accuracy float64) string {
	return fmt.Sprintf("Turn %d scored %.0f percent.", n, accuracy)
}

func LineConversationDone() string {
	return "Conversation complete. Well done."
}

// ── AI tutor ─────────────────────────────────────────────────────

func LineAIDisabled() string {
	return "The AI tutor is not available. Set GPT_CHAT_KEY and GPT_CHAT_ENDPOINT to enable it."
}

func LineAIError() string {
	return "Something went wrong with the AI tutor. Try again."
}

func LineVoiceDisabled() string {
	return "Voice input is off. Start with -whisper-bin and -whisper-model to use listen."
}

// ── Thinking fillers ─────────────────────────────────────────────
// Spoken while waiting for the tutor. Randomized to avoid repetition.

var thinkingFillers = []string{
	"Let me think about that.",
	"Good question. Give me a second.",
	"Hmm, one moment.",
	"Hang on, thinking.",
	"Let me consider that.",
	"Okay, let me think.",
}

// LineThinking returns a random filler for when the tutor is working.
func LineThinking() string {
	return thinkingFillers[rand.Intn(len(thinkingFillers))]
}

// ── Status ───────────────────────────────────────────────────────

func LineStatus(topic, mode string, question, total, xp int) string {
	if mode == "" {
		return fmt.Sprintf("Topic %s. %d XP so far.", topic, xp)
	}
	return fmt.Sprintf("Topic %s, %s practice, question %d of %d. %d XP so far.", topic, mode, question, total, xp)
}

// FormatDurationSpeech returns a human-friendly spoken duration.
func FormatDurationSpeech(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	switch {
	case m == 0:
		return fmt.Sprintf("%d seconds", s)
	case s == 0 && m == 1:
		return "1 minute"
	case s == 0:
		return fmt.Sprintf("%d minutes", m)
	default:
		return fmt.Sprintf("%d minutes %d seconds", m, s)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
