// Package journey owns the topic list of the speaking journey and the
// recording-based practice flows: pronunciation phrases, conversation
// turns, and the rehearsal with the AI partner.
package journey

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// TopicSource lists topics. The built-in catalog implements it and stands
// in when the backend is unreachable.
type TopicSource interface {
	List(ctx context.Context) ([]domain.Topic, error)
}

// Option configures a Journey.
type Option func(*Journey)

// WithFallback installs the topics used when loading fails.
func WithFallback(src TopicSource) Option {
	return func(j *Journey) { j.fallback = src }
}

// Journey holds the loaded topics, the selection, and the user's profile.
type Journey struct {
	repo         domain.JourneyRepository
	gamification domain.GamificationRepository
	fallback     TopicSource
	log          *logger.Logger

	mu       sync.Mutex
	topics   []domain.Topic
	profile  domain.UserProfile
	selected int
	err      string
	stats    *domain.GamificationProfile
	userKey  string
}

// New creates an empty journey. Call ReloadTopics to populate it.
func New(repo domain.JourneyRepository, gamification domain.GamificationRepository, log *logger.Logger, opts ...Option) *Journey {
	j := &Journey{
		repo:         repo,
		gamification: gamification,
		log:          log,
		userKey:      "default",
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// ReloadTopics fetches the topic list and picks the selected topic. On
// failure the fallback catalog is installed and Err explains why; the
// returned error is the fetch error.
func (j *Journey) ReloadTopics(ctx context.Context) error {
	j.mu.Lock()
	var prevID string
	if t := j.currentLocked(); t != nil {
		prevID = t.ID
	}
	j.mu.Unlock()

	page, err := j.repo.Topics(ctx)
	if err != nil {
		j.log.Error("loading topics: %v", err)
		var fallback []domain.Topic
		if j.fallback != nil {
			fallback, _ = j.fallback.List(ctx)
		}
		j.mu.Lock()
		j.topics = fallback
		j.profile = domain.UserProfile{FirstVisit: true}
		j.selected = 0
		j.err = "Unable to load topics. " + err.Error()
		j.mu.Unlock()
		return fmt.Errorf("journey: loading topics: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.topics = page.Topics
	j.profile = page.Profile
	j.selected = chooseSelection(page.Topics, page.Profile, prevID)
	j.err = ""
	j.log.Debug("loaded %d topics, selected %d", len(page.Topics), j.selected)
	return nil
}

// chooseSelection prefers the server's last-visited topic, then the
// previous selection, then the first unlocked topic. A completed choice
// moves on to the next unlocked, incomplete topic.
func chooseSelection(topics []domain.Topic, profile domain.UserProfile, prevID string) int {
	if len(topics) == 0 {
		return 0
	}
	indexOf := func(id string) int {
		if id == "" {
			return -1
		}
		for i := range topics {
			if topics[i].ID == id {
				return i
			}
		}
		return -1
	}

	base := -1
	if !profile.FirstVisit {
		base = indexOf(profile.LastVisitedTopicID)
	}
	if base < 0 {
		base = indexOf(prevID)
	}
	if base < 0 {
		base = 0
		for i := range topics {
			if topics[i].Unlocked {
				base = i
				break
			}
		}
	}

	if topics[base].Completed {
		open := func(i int) bool { return topics[i].Unlocked && !topics[i].Completed }
		next := -1
		for i := base + 1; i < len(topics); i++ {
			if open(i) {
				next = i
				break
			}
		}
		if next < 0 {
			for i := range topics {
				if open(i) {
					next = i
					break
				}
			}
		}
		if next >= 0 {
			base = next
		}
	}
	return base
}

// Topics returns a copy of the loaded topics.
func (j *Journey) Topics() []domain.Topic {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.Topic(nil), j.topics...)
}

// Current returns a copy of the selected topic and its index, or nil.
func (j *Journey) Current() (*domain.Topic, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	t := j.currentLocked()
	if t == nil {
		return nil, -1
	}
	c := *t
	return &c, j.selected
}

func (j *Journey) currentLocked() *domain.Topic {
	if j.selected < 0 || j.selected >= len(j.topics) {
		return nil
	}
	return &j.topics[j.selected]
}

// SelectTopic selects an unlocked topic by index and reports it as the
// last visited one.
func (j *Journey) SelectTopic(ctx context.Context, index int) error {
	j.mu.Lock()
	if index < 0 || index >= len(j.topics) {
		j.mu.Unlock()
		return domain.ErrNotFound
	}
	if !j.topics[index].Unlocked {
		j.mu.Unlock()
		return domain.ErrTopicLocked
	}
	j.selected = index
	id := j.topics[index].ID
	j.mu.Unlock()

	if err := j.repo.UpdateLastVisitedTopic(ctx, id); err != nil {
		j.log.Warn("updating last visited topic: %v", err)
	}
	return nil
}

// SelectTopicByID is SelectTopic by topic id.
func (j *Journey) SelectTopicByID(ctx context.Context, id string) error {
	j.mu.Lock()
	index := -1
	for i := range j.topics {
		if j.topics[i].ID == id {
			index = i
			break
		}
	}
	j.mu.Unlock()
	if index < 0 {
		return domain.ErrNotFound
	}
	return j.SelectTopic(ctx, index)
}

// MarkCurrentTopicComplete completes the selected topic on the server and
// reloads. Already completed topics are skipped and return nil, nil.
func (j *Journey) MarkCurrentTopicComplete(ctx context.Context) (*domain.TopicCompletion, error) {
	current, _ := j.Current()
	if current == nil {
		return nil, domain.ErrNoTopic
	}
	if current.Completed {
		return nil, nil
	}
	res, err := j.repo.CompleteTopic(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("journey: completing %s: %w", current.ID, err)
	}
	if err := j.ReloadTopics(ctx); err != nil {
		j.log.Warn("reload after completion: %v", err)
	}
	return res, nil
}

// MarkSpeakingActivity counts today towards the day streak. The backend
// is idempotent so calling it more than once a day is harmless.
func (j *Journey) MarkSpeakingActivity(ctx context.Context) {
	if _, err := j.gamification.UpdateStreak(ctx); err != nil {
		j.log.Debug("streak update failed: %v", err)
	}
}

// RefreshProfile fetches level, XP, and streak, and derives the user key
// that namespaces local storage.
func (j *Journey) RefreshProfile(ctx context.Context) (*domain.GamificationProfile, error) {
	p, err := j.gamification.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("journey: profile: %w", err)
	}
	j.mu.Lock()
	j.stats = p
	j.userKey = UserKey(p.UserEmail, p.UserName)
	j.mu.Unlock()
	return p, nil
}

// SetUserKey overrides the storage key, e.g. from the access token.
func (j *Journey) SetUserKey(key string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if key != "" {
		j.userKey = key
	}
}

// CurrentUserKey returns the storage key of the signed-in user.
func (j *Journey) CurrentUserKey() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.userKey
}

// Stats returns the last fetched gamification profile, or nil.
func (j *Journey) Stats() *domain.GamificationProfile {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stats == nil {
		return nil
	}
	c := *j.stats
	return &c
}

// Profile returns the journey profile from the last load.
func (j *Journey) Profile() domain.UserProfile {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.profile
}

// Err returns the user-facing load error, empty when fine.
func (j *Journey) Err() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// updateTopic applies fn to the loaded topic with id.
func (j *Journey) updateTopic(id string, fn func(*domain.Topic)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.topics {
		if j.topics[i].ID == id {
			fn(&j.topics[i])
			return
		}
	}
}

var unsafeKey = regexp.MustCompile(`[^a-z0-9._-]`)

// UserKey derives the local storage key: the lower-cased email, else the
// name, else "default", with anything outside [a-z0-9._-] replaced by _.
func UserKey(email, name string) string {
	base := strings.ToLower(strings.TrimSpace(email))
	if base == "" {
		base = strings.ToLower(strings.TrimSpace(name))
	}
	if base == "" {
		base = "default"
	}
	return unsafeKey.ReplaceAllString(base, "_")
}
