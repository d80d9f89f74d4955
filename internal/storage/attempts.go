package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Compile-time interface check.
var _ domain.AttemptStore = (*AttemptFiles)(nil)

// attemptTimeLayout is the on-disk form of FluencyAttempt.CreatedAt.
const attemptTimeLayout = "2006-01-02 15:04:05"

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// AttemptFiles caches attempt history as JSON files under a root
// directory:
//
//	<root>/voicevibe/fluency_attempts/<user>/<topic>.json
//	<root>/voicevibe/users/<user>/transcripts/<topic>.json
//
// Every write replaces the file atomically.
type AttemptFiles struct {
	mu   sync.Mutex
	root string
	log  *logger.Logger
}

// NewAttemptFiles creates a file-backed attempt store rooted at dir.
func NewAttemptFiles(dir string, log *logger.Logger) *AttemptFiles {
	return &AttemptFiles{root: filepath.Join(dir, "voicevibe"), log: log}
}

// fluencyRecord is the JSON shape of one stored fluency attempt.
type fluencyRecord struct {
	domain.FluencyAttempt
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}

type transcriptFile struct {
	Entries map[string]domain.PhraseTranscript `json:"entries"`
}

func (f *AttemptFiles) fluencyPath(userID, topicID string) string {
	return filepath.Join(f.root, "fluency_attempts", safeName(userID), safeName(topicID)+".json")
}

func (f *AttemptFiles) transcriptPath(userKey, topicID string) string {
	return filepath.Join(f.root, "users", safeName(userKey), "transcripts", safeName(topicID)+".json")
}

// AppendFluency stores attempt under its user and topic. The file stays
// sorted newest first.
func (f *AttemptFiles) AppendFluency(ctx context.Context, topicID string, attempt domain.FluencyAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	path := f.fluencyPath(attempt.UserID, topicID)

	var records []fluencyRecord
	if err := readJSON(path, &records); err != nil {
		return fmt.Errorf("storage: reading fluency attempts: %w", err)
	}
	records = append(records, fluencyRecord{
		FluencyAttempt: attempt,
		ID:             uuid.New().String(),
		CreatedAt:      attempt.CreatedAt.Format(attemptTimeLayout),
	})
	// The layout sorts lexically in time order.
	sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt > records[j].CreatedAt })

	if err := writeJSON(path, records); err != nil {
		return fmt.Errorf("storage: writing fluency attempts: %w", err)
	}
	f.log.Debug("stored fluency attempt for %s/%s (score %d)", attempt.UserID, topicID, attempt.OverallScore)
	return nil
}

// FluencyAttempts lists stored attempts for a user and topic, newest first.
func (f *AttemptFiles) FluencyAttempts(ctx context.Context, userID, topicID string) ([]domain.FluencyAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var records []fluencyRecord
	if err := readJSON(f.fluencyPath(userID, topicID), &records); err != nil {
		return nil, fmt.Errorf("storage: reading fluency attempts: %w", err)
	}
	out := make([]domain.FluencyAttempt, 0, len(records))
	for _, r := range records {
		a := r.FluencyAttempt
		if t, err := time.ParseInLocation(attemptTimeLayout, r.CreatedAt, time.Local); err == nil {
			a.CreatedAt = t
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// SavePhrase stores a phrase transcript, replacing any entry for the
// same phrase index.
func (f *AttemptFiles) SavePhrase(ctx context.Context, userKey, topicID string, entry domain.PhraseTranscript) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.transcriptPath(userKey, topicID)
	var file transcriptFile
	if err := readJSON(path, &file); err != nil {
		return fmt.Errorf("storage: reading transcripts: %w", err)
	}
	if file.Entries == nil {
		file.Entries = make(map[string]domain.PhraseTranscript)
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().UnixMilli()
	}
	file.Entries[strconv.Itoa(entry.Index)] = entry

	if err := writeJSON(path, file); err != nil {
		return fmt.Errorf("storage: writing transcripts: %w", err)
	}
	return nil
}

// Phrases returns the stored transcripts for a topic ordered by phrase index.
func (f *AttemptFiles) Phrases(ctx context.Context, userKey, topicID string) ([]domain.PhraseTranscript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var file transcriptFile
	if err := readJSON(f.transcriptPath(userKey, topicID), &file); err != nil {
		return nil, fmt.Errorf("storage: reading transcripts: %w", err)
	}
	out := make([]domain.PhraseTranscript, 0, len(file.Entries))
	for _, e := range file.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// readJSON decodes path into v. A missing or empty file leaves v untouched.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// writeJSON encodes v to a temp file beside path and renames it into place.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}

func safeName(s string) string {
	s = unsafeName.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		return "default"
	}
	return s
}
