package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		wantDebug bool
		wantInfo  bool
	}{
		{"off", LevelOff, false, false},
		{"normal", LevelNormal, false, true},
		{"verbose", LevelVerbose, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(tt.level, &buf)
			l.Debug("debug line")
			l.Info("info line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Fatalf("debug visible=%v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Fatalf("info visible=%v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestNamedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelOff, &buf)
	child := root.Named("engine").Named("quiz")

	child.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output while off, got %q", buf.String())
	}

	root.SetLevel(LevelNormal)
	child.Warn("visible %d", 1)
	if !strings.Contains(buf.String(), "engine/quiz: visible 1") {
		t.Fatalf("missing component prefix: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel(true, true) != LevelOff {
		t.Fatal("quiet should win")
	}
	if ParseLevel(true, false) != LevelVerbose {
		t.Fatal("verbose expected")
	}
	if ParseLevel(false, false) != LevelNormal {
		t.Fatal("normal expected")
	}
}
