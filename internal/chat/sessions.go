package chat

import (
	"log/slog"
	"sync"
)

// Sessions tracks one controller per anonymous browser identity,
// created lazily on first use. Conversations belonging to different
// browsers are fully independent.
type Sessions struct {
	mu      sync.RWMutex
	active  map[string]*Controller
	factory func(sessionID string) *Controller
}

// NewSessions creates a registry. factory builds the controller for a
// new session identity.
func NewSessions(factory func(sessionID string) *Controller) *Sessions {
	return &Sessions{
		active:  make(map[string]*Controller),
		factory: factory,
	}
}

// Get returns the controller for the session, creating it if needed.
func (s *Sessions) Get(sessionID string) *Controller {
	s.mu.RLock()
	c, ok := s.active[sessionID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.active[sessionID]; ok {
		return c
	}
	c = s.factory(sessionID)
	s.active[sessionID] = c
	slog.Info("Chat session created", "session_id", sessionID)
	return c
}

// Wait drains in-flight sends across all sessions.
func (s *Sessions) Wait() {
	s.mu.RLock()
	controllers := make([]*Controller, 0, len(s.active))
	for _, c := range s.active {
		controllers = append(controllers, c)
	}
	s.mu.RUnlock()

	for _, c := range controllers {
		c.Wait()
	}
}
