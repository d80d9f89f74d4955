// Package storage provides session, attempt-history, and activity
// persistence implementations.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/hammamikhairi/voicevibe/internal/domain"
	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// Compile-time interface check.
var _ domain.SessionStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory session store holding at most one session
// per topic and mode. Sessions are copied in and out, so callers never
// share state with the store. Safe for concurrent access.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	log      *logger.Logger
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		log:      log,
	}
}

// Save persists a session, replacing whatever occupied its topic and mode.
func (s *MemoryStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.SessionKey(session.TopicID, session.Mode)
	s.log.Debug("saving session %s (key=%s, index=%d, status=%s)", session.ID, key, session.Index, session.Status)
	s.sessions[key] = session.Clone()
	return nil
}

// Load retrieves the session for a topic and mode.
func (s *MemoryStore) Load(ctx context.Context, topicID string, mode domain.PracticeMode) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[domain.SessionKey(topicID, mode)]
	if !ok {
		s.log.Debug("session not found: %s/%s", topicID, mode)
		return nil, domain.ErrNotFound
	}
	return sess.Clone(), nil
}

// Delete removes the session for a topic and mode.
func (s *MemoryStore) Delete(ctx context.Context, topicID string, mode domain.PracticeMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.SessionKey(topicID, mode)
	if _, ok := s.sessions[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, key)
	s.log.Debug("deleted session %s", key)
	return nil
}

// ListActive returns all sessions still in progress, oldest first.
func (s *MemoryStore) ListActive(ctx context.Context) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Session
	for _, sess := range s.sessions {
		if sess.Status == domain.SessionActive && sess.ID != "" {
			out = append(out, sess.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	s.log.Debug("listing active sessions, count=%d", len(out))
	return out, nil
}
