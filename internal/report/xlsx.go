// Package report exports practice history to spreadsheets.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hammamikhairi/voicevibe/internal/domain"
)

var attemptHeader = []any{"Date", "Session", "Score", "Pauses", "Stutters", "Mispronunciations", "Transcript", "Feedback"}

// WriteAttempts writes fluency attempts to an .xlsx workbook at path: a
// header row, then one row per attempt in the given order. The sheet is
// named after the topic.
func WriteAttempts(path, topicTitle string, attempts []domain.FluencyAttempt) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(topicTitle)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("report: naming sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &attemptHeader); err != nil {
		return fmt.Errorf("report: header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report: style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "H1", bold); err != nil {
		return fmt.Errorf("report: header style: %w", err)
	}

	for i, a := range attempts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("report: row %d: %w", i+2, err)
		}
		date := ""
		if !a.CreatedAt.IsZero() {
			date = a.CreatedAt.Format("2006-01-02 15:04")
		}
		row := []any{
			date,
			a.SessionID,
			a.OverallScore,
			len(a.Pauses),
			a.StutterCount,
			strings.Join(a.Mispronunciations, ", "),
			a.Transcript,
			a.Feedback,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("report: row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "G", "H", 60); err != nil {
		return fmt.Errorf("report: column width: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: saving %s: %w", path, err)
	}
	return nil
}

// SheetName makes a valid worksheet name from a title: at most 31
// characters and none of : \ / ? * [ ].
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if name == "" {
		return "Attempts"
	}
	return name
}
