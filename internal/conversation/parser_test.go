package conversation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

func TestKeywordParser(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	parser := NewKeywordParser(log)
	ctx := context.Background()

	tests := []struct {
		input       string
		wantType    domain.IntentType
		wantPayload string
	}{
		// Topics
		{"topics", domain.IntentListTopics, ""},
		{"select 2", domain.IntentSelectTopic, "2"},
		{"select t-cafe", domain.IntentSelectTopic, "t-cafe"},
		{"profile", domain.IntentProfile, ""},
		{"history", domain.IntentHistory, ""},

		// Quiz
		{"grammar", domain.IntentStartQuiz, "grammar"},
		{"Vocab", domain.IntentStartQuiz, "vocab"},
		{"listening", domain.IntentStartQuiz, "listening"},
		{"3", domain.IntentAnswer, "3"},
		{"pick a latte", domain.IntentAnswer, "a latte"},
		{"reveal", domain.IntentReveal, ""},
		{"restart", domain.IntentRestart, ""},
		{"dismiss", domain.IntentDismiss, ""},
		{"ok", domain.IntentDismiss, ""},

		// Fluency
		{"fluency", domain.IntentFluency, ""},
		{"record", domain.IntentRecord, ""},
		{"pause", domain.IntentPauseRecord, ""},
		{"resume", domain.IntentResumeRecord, ""},
		{"stop", domain.IntentStop, ""},

		// Conversation
		{"play 2", domain.IntentPlay, "2"},
		{"play all", domain.IntentPlay, "all"},
		{"role b", domain.IntentRole, "B"},
		{"turn 3 /tmp/turn.wav", domain.IntentSubmitTurn, "3 /tmp/turn.wav"},
		{"phrase ./hello.wav", domain.IntentSubmitPhrase, "./hello.wav"},
		{"turn 3", domain.IntentSubmitTurn, "3"},
		{"phrase", domain.IntentSubmitPhrase, ""},
		{"rehearse a", domain.IntentRehearse, "A"},
		{"say A latte, please.", domain.IntentSay, "A latte, please."},
		{"listen", domain.IntentListen, ""},

		// Tutor
		{"ask how do I order politely", domain.IntentAskQuestion, "how do I order politely"},
		{"how do I say receipt?", domain.IntentAskQuestion, "how do I say receipt?"},
		{"explain 2", domain.IntentExplain, "2"},

		// Other
		{"export out.xlsx", domain.IntentExport, "out.xlsx"},
		{"review", domain.IntentReview, ""},
		{"review 3", domain.IntentReview, "3"},
		{"Review Next", domain.IntentReview, "next"},
		{"complete", domain.IntentComplete, ""},
		{"pardon", domain.IntentRepeat, ""},
		{"status", domain.IntentStatus, ""},
		{"help", domain.IntentHelp, ""},
		{"?", domain.IntentHelp, ""},
		{"quit", domain.IntentQuit, ""},
		{"q", domain.IntentQuit, ""},

		// Unknown
		{"role c", domain.IntentUnknown, "role c"},
		{"bake a cake", domain.IntentUnknown, "bake a cake"},
		{"", domain.IntentUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			intent, err := parser.Parse(ctx, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if intent.Type != tt.wantType {
				t.Errorf("input=%q: got type %s, want %s", tt.input, intent.Type, tt.wantType)
			}
			if tt.wantPayload != "" && intent.Payload != tt.wantPayload {
				t.Errorf("input=%q: got payload %q, want %q", tt.input, intent.Payload, tt.wantPayload)
			}
		})
	}
}

type fakeClassifier struct {
	intent *domain.Intent
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(context.Context, string) (*domain.Intent, error) {
	f.calls++
	return f.intent, f.err
}

func TestParserClassifierFallback(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	ctx := context.Background()

	t.Run("classified", func(t *testing.T) {
		c := &fakeClassifier{intent: &domain.Intent{Type: domain.IntentStartQuiz, Payload: "grammar"}}
		intent, err := NewKeywordParser(log, WithClassifier(c)).Parse(ctx, "quiz me on grammar")
		if err != nil {
			t.Fatal(err)
		}
		if intent.Type != domain.IntentStartQuiz || intent.Payload != "grammar" {
			t.Fatalf("intent = %+v", intent)
		}
	})

	t.Run("keywords win", func(t *testing.T) {
		c := &fakeClassifier{intent: &domain.Intent{Type: domain.IntentQuit}}
		intent, _ := NewKeywordParser(log, WithClassifier(c)).Parse(ctx, "topics")
		if intent.Type != domain.IntentListTopics || c.calls != 0 {
			t.Fatalf("intent = %+v, classifier calls = %d", intent, c.calls)
		}
	})

	t.Run("classifier error", func(t *testing.T) {
		c := &fakeClassifier{err: errors.New("offline")}
		intent, err := NewKeywordParser(log, WithClassifier(c)).Parse(ctx, "what is a receipt")
		if err != nil {
			t.Fatal(err)
		}
		if intent.Type != domain.IntentAskQuestion {
			t.Fatalf("intent = %+v", intent)
		}
	})
}

func TestCLINotifierWriterFallback(t *testing.T) {
	var buf bytes.Buffer
	n := &CLINotifier{log: logger.New(logger.LevelOff, nil), printer: writerPrinter{w: &buf}}
	if err := n.Notify(context.Background(), "Nice work"); err != nil {
		t.Fatal(err)
	}
	if err := n.NotifyUrgent(context.Background(), "Mic unavailable"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, cyan+bold+"Nice work") || !strings.Contains(out, red+bold+"Mic unavailable") {
		t.Fatalf("output = %q", out)
	}
}
