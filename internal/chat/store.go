// Package chat owns per-repository conversations and the session
// controller that mediates user intents against the store and the
// upstream answer service.
package chat

import (
	"sync"

	"github.com/scopium-app/scopium/internal/domain"
)

// conversation is the ordered message log for one repository.
// messages are guarded by mu; inHistory is guarded by the store lock.
type conversation struct {
	repo domain.Repository

	mu       sync.Mutex
	messages []domain.Message

	inHistory bool
}

// Store maps repository identity to its conversation and keeps the
// history of repositories with at least one sent message. It is
// in-memory and bounded by process lifetime.
//
// The store-level lock only guards the maps and the history list;
// message appends take the per-conversation lock, so conversations for
// different repositories never contend.
type Store struct {
	mu      sync.RWMutex
	convs   map[int64]*conversation
	history []domain.Repository
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{convs: make(map[int64]*conversation)}
}

// GetOrCreate ensures a conversation exists for the repository.
// Repeated calls with the same identity are no-ops: an existing
// conversation is never replaced, whatever the selection order.
func (s *Store) GetOrCreate(repo domain.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[repo.ID]; !ok {
		s.convs[repo.ID] = &conversation{repo: repo}
	}
}

// Append adds a message to the end of the repository's conversation.
func (s *Store) Append(repoID int64, msg domain.Message) error {
	s.mu.RLock()
	c, ok := s.convs[repoID]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrUnknownRepository
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return nil
}

// ConversationOf returns a snapshot of the conversation in append
// order. A known-but-empty conversation yields an empty slice.
func (s *Store) ConversationOf(repoID int64) ([]domain.Message, error) {
	s.mu.RLock()
	c, ok := s.convs[repoID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUnknownRepository
	}

	c.mu.Lock()
	snapshot := make([]domain.Message, len(c.messages))
	copy(snapshot, c.messages)
	c.mu.Unlock()
	return snapshot, nil
}

// RecordHistory adds the repository to the history list if absent.
// The per-conversation flag makes the membership check O(1).
func (s *Store) RecordHistory(repo domain.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[repo.ID]
	if !ok {
		c = &conversation{repo: repo}
		s.convs[repo.ID] = c
	}
	if c.inHistory {
		return
	}
	c.inHistory = true
	s.history = append(s.history, repo)
}

// History returns the repositories with at least one sent message, in
// first-added order.
func (s *Store) History() []domain.Repository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Repository, len(s.history))
	copy(out, s.history)
	return out
}
