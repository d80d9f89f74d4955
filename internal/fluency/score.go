package fluency

import (
	"math"
	"strings"
)

// Scoring constants.
const (
	targetWPM       = 140.0
	allowedWPMDelta = 60.0
	fullCreditSec   = 28.0
	longPauseSec    = 1.0

	// CompletionScore is the minimum score that completes a prompt.
	CompletionScore = 75
	// CompletionXP is awarded for a completed prompt, ParticipationXP otherwise.
	CompletionXP    = 50
	ParticipationXP = 10
)

// Analysis is the per-recording signal the score is computed from.
type Analysis struct {
	Pauses            []float64 // seconds
	StutterCount      int
	Mispronunciations []string
}

// Score computes the objective fluency score in [0,100] from the
// transcript, recording length, and analysis. Speech rate (ideal 140 wpm)
// weighs 60%, time coverage up to 28s weighs 40%, and long pauses,
// stutters, repeated phrases, and mispronunciations subtract capped
// penalties.
func Score(transcript string, durationSec float64, a Analysis) int {
	dur := math.Max(durationSec, 0)
	raw := strings.TrimSpace(transcript)

	originalCount := WordCount(raw)
	cleanedCount := WordCount(CollapseRepeats(raw, true))

	var repeatRatio float64
	if originalCount > 0 {
		repeatRatio = float64(max(0, originalCount-cleanedCount)) / float64(originalCount)
	}

	var wpm float64
	if dur > 0 {
		wpm = float64(cleanedCount) / (dur / 60)
	}

	rateScore := clamp(100-(math.Abs(wpm-targetWPM)/allowedWPMDelta)*100, 0, 100)
	timeScore := clamp(math.Min(1, dur/fullCreditSec)*100, 0, 100)

	longPauses := 0
	for _, p := range a.Pauses {
		if p >= longPauseSec {
			longPauses++
		}
	}
	penalties := math.Min(18, float64(longPauses*3)) +
		math.Min(16, float64(a.StutterCount*4)) +
		math.Min(16, repeatRatio*40) +
		math.Min(18, float64(len(a.Mispronunciations)*3))

	score := int(rateScore*0.6 + timeScore*0.4 - penalties)
	return int(clamp(float64(score), 0, 100))
}

// Completed reports whether score completes the prompt.
func Completed(score int) bool {
	return score >= CompletionScore
}

// AwardedXP is the experience for a scored attempt.
func AwardedXP(score int) int {
	if Completed(score) {
		return CompletionXP
	}
	return ParticipationXP
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
