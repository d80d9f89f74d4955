package display

import (
	"strings"
	"testing"
	"time"
)

func TestBarParts(t *testing.T) {
	got := barParts(Status{Topic: "Ordering at a Cafe", Mode: "grammar", Question: "2/5", XP: 120, Streak: 3})
	want := [][2]string{
		{"topic", "Ordering at a Cafe"},
		{"mode", "grammar"},
		{"q", "2/5"},
		{"xp", "120"},
		{"streak", "3d"},
	}
	if len(got) != len(want) {
		t.Fatalf("parts = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("part %d = %v, want %v", i, got[i], want[i])
		}
	}
	if renderBar(Status{}, 80) != "" {
		t.Fatal("empty status should render no bar")
	}
}

func TestTitleFor(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{}, "VoiceVibe"},
		{Status{Topic: "Cafe"}, "VoiceVibe | Cafe"},
		{Status{Topic: "Cafe", Recording: true, Remaining: 42 * time.Second}, "VoiceVibe | recording 42s"},
		{Status{Recording: true, Paused: true, Remaining: 90 * time.Second}, "VoiceVibe | paused 1m30s"},
	}
	for _, tt := range tests {
		if got := titleFor(tt.status); got != tt.want {
			t.Fatalf("titleFor(%+v) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	if got := fmtDuration(-time.Second); got != "0s" {
		t.Fatalf("negative = %q", got)
	}
	if got := fmtDuration(125 * time.Second); got != "2m05s" {
		t.Fatalf("125s = %q", got)
	}
}

func TestBannerFor(t *testing.T) {
	if got := bannerFor(10); !strings.Contains(got, "VoiceVibe - ") || strings.Contains(got, "\n") {
		t.Fatalf("narrow banner = %q", got)
	}
	if got := bannerFor(200); !strings.Contains(got, tagline) || !strings.Contains(got, "\n") {
		t.Fatalf("wide banner = %q", got)
	}
}
