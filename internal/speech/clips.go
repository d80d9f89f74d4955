package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a topic title into the directory name used for its
// pre-recorded conversation clips: lower case, runs of anything outside
// [a-z0-9] collapsed to "_", no leading or trailing "_".
func Slug(topicKey string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(topicKey), "_")
	return strings.Trim(s, "_")
}

// ClipPath is where the clip for turn index (zero-based) of a topic lives:
// <dir>/<slug>/turn_<index+1>.wav.
func ClipPath(dir, topicKey string, index int) string {
	return filepath.Join(dir, Slug(topicKey), fmt.Sprintf("turn_%d.wav", index+1))
}

// loadClip reads a pre-recorded clip. ok is false when there is none.
func loadClip(dir, topicKey string, index int) (data []byte, ok bool) {
	if dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(ClipPath(dir, topicKey, index))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
