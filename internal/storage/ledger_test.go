package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hammamikhairi/voicevibe/internal/logger"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger("sqlite3", filepath.Join(t.TempDir(), "ledger.db"), logger.New(logger.LevelOff, nil))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerXP(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	for _, p := range []int{10, 50, 0, -5} {
		if err := l.AddXP(ctx, "ana", "practice_grammar", p); err != nil {
			t.Fatalf("add xp: %v", err)
		}
	}
	if err := l.AddXP(ctx, "bob", "practice_conversation", 100); err != nil {
		t.Fatalf("add xp: %v", err)
	}

	total, err := l.TotalXP(ctx, "ana")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 60 {
		t.Fatalf("expected 60 XP, got %d", total)
	}

	events, err := l.Events(ctx, "ana", 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestLedgerActivity(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	today := time.Date(2026, 5, 10, 12, 0, 0, 0, time.Local)

	for _, offset := range []int{-1, -2, -2, -4} {
		if err := l.MarkActive(ctx, "ana", today.AddDate(0, 0, offset)); err != nil {
			t.Fatalf("mark active: %v", err)
		}
	}

	active, err := l.ActiveOn(ctx, "ana", today)
	if err != nil {
		t.Fatalf("active on: %v", err)
	}
	if active {
		t.Fatal("expected no activity today")
	}

	streak, err := l.LocalStreak(ctx, "ana", today)
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streak != 2 {
		t.Fatalf("expected streak 2 ending yesterday, got %d", streak)
	}

	if err := l.MarkActive(ctx, "ana", today); err != nil {
		t.Fatalf("mark today: %v", err)
	}
	streak, _ = l.LocalStreak(ctx, "ana", today)
	if streak != 3 {
		t.Fatalf("expected streak 3, got %d", streak)
	}
}

func TestStreakFrom(t *testing.T) {
	today := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		days []string
		want int
	}{
		{"empty", nil, 0},
		{"today only", []string{"2026-01-01"}, 1},
		{"across year boundary", []string{"2026-01-01", "2025-12-31", "2025-12-30"}, 3},
		{"yesterday run", []string{"2025-12-31", "2025-12-30"}, 2},
		{"stale", []string{"2025-12-29"}, 0},
		{"gap", []string{"2026-01-01", "2025-12-30"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := streakFrom(tt.days, today); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
