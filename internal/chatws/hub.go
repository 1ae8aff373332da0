// Package chatws pushes conversation events to connected browsers
// over WebSocket. Sends are asynchronous on the HTTP side, so the
// assistant reply for a message often completes after the triggering
// request returned; this channel is how the client learns about it.
package chatws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/scopium-app/scopium/internal/chat"
)

// writeTimeout bounds a single push so one stuck client cannot stall
// the broadcasting goroutine forever.
const writeTimeout = 5 * time.Second

// subscriber is one connected browser tab. The mutex serializes
// writes; coder/websocket allows only one concurrent writer.
type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// Hub fans conversation events out to the subscribers of a session.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *Hub) register(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sessionID]; !ok {
		h.subs[sessionID] = make(map[*subscriber]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	slog.Info("Chat subscriber registered", "session_id", sessionID)
}

func (h *Hub) unregister(sessionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[sessionID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sessionID)
		}
	}
}

// Broadcast delivers an event to every subscriber of the session.
// Delivery is best-effort: a failed write is logged and the client is
// expected to resynchronize through the conversation read endpoint.
func (h *Hub) Broadcast(sessionID string, ev chat.Event) {
	payload, err := json.Marshal(map[string]any{
		"type":    "message",
		"repo_id": ev.RepoID,
		"message": ev.Message,
	})
	if err != nil {
		slog.Error("Marshal chat event failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs[sessionID]))
	for sub := range h.subs[sessionID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.send(payload); err != nil {
			slog.Debug("Chat push failed", "session_id", sessionID, "error", err)
		}
	}
}
