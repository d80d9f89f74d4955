// Package fluency implements the timed free-speech practice mode: the
// prompt, the 30-second recorder, transcript cleanup, the objective
// fluency score, and the submission pipeline.
package fluency

import (
	"regexp"
	"strings"
)

const (
	maxPhraseWords  = 5
	maxWordsForAuto = 30
)

var nonToken = regexp.MustCompile(`[^a-z0-9']+`)

var quoteFolder = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

// CollapseRepeats removes consecutive repeats of 2 to 5 word phrases,
// keeping the first occurrence as written. Whisper produces loops like
// "I want to I want to I want to" on hesitant speech.
//
// Unless force is set, transcripts of 3 words or fewer, or more than 30,
// are returned unchanged.
func CollapseRepeats(text string, force bool) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return s
	}
	words := strings.Fields(strings.ReplaceAll(s, "\n", " "))
	n := len(words)
	if !force && (n <= 3 || n > maxWordsForAuto) {
		return strings.Join(words, " ")
	}

	norm := make([]string, n)
	for i, w := range words {
		norm[i] = nonToken.ReplaceAllString(strings.ToLower(quoteFolder.Replace(w)), "")
	}

	out := make([]string, 0, n)
	for i := 0; i < n; {
		collapsed := false
		for w := min(maxPhraseWords, n-i); w >= 2; w-- {
			chunk := norm[i : i+w]
			if hasEmpty(chunk) {
				continue
			}
			repeats := 1
			for i+(repeats+1)*w <= n && equalTokens(norm[i+repeats*w:i+(repeats+1)*w], chunk) {
				repeats++
			}
			if repeats >= 2 {
				out = append(out, words[i:i+w]...)
				i += repeats * w
				collapsed = true
				break
			}
		}
		if !collapsed {
			out = append(out, words[i])
			i++
		}
	}
	return strings.Join(out, " ")
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func hasEmpty(tokens []string) bool {
	for _, t := range tokens {
		if t == "" {
			return true
		}
	}
	return false
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
