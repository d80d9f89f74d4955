package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hammamikhairi/voicevibe/internal/domain"
)

func TestWriteAttempts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	attempts := []domain.FluencyAttempt{
		{
			SessionID:         "s2",
			OverallScore:      81,
			CreatedAt:         time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
			Pauses:            []float64{0.8, 1.2},
			StutterCount:      2,
			Mispronunciations: []string{"latte", "receipt"},
			Transcript:        "I would like a latte",
			Feedback:          "Good pace.",
		},
		{SessionID: "s1", OverallScore: 64},
	}
	if err := WriteAttempts(path, "Ordering at a Cafe", attempts); err != nil {
		t.Fatalf("WriteAttempts: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Ordering at a Cafe")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][7] != "Feedback" {
		t.Fatalf("header = %v", rows[0])
	}
	want := []string{"2026-03-02 09:30", "s2", "81", "2", "2", "latte, receipt", "I would like a latte", "Good pace."}
	for i, w := range want {
		if rows[1][i] != w {
			t.Fatalf("row 2 col %d = %q, want %q", i, rows[1][i], w)
		}
	}
	if rows[2][0] != "" || rows[2][1] != "s1" || rows[2][2] != "64" {
		t.Fatalf("row 3 = %v", rows[2])
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Travel: Airports", "Travel- Airports"},
		{"", "Attempts"},
		{"A very long topic title that goes on and on", "A very long topic title that go"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.in); got != tt.want {
			t.Fatalf("SheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
