package chatws

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/scopium-app/scopium/internal/identity"
)

// Handler upgrades /ws/chat requests and keeps the connection
// subscribed to the browser's session until the client goes away.
type Handler struct {
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a WebSocket handler bound to the hub.
func NewHandler(hub *Hub, allowedOrigin string, isDev bool) *Handler {
	return &Handler{hub: hub, allowedOrigin: allowedOrigin, isDev: isDev}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "no session identity", http.StatusUnauthorized)
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.isDev {
		opts.OriginPatterns = []string{"*"}
	} else if h.allowedOrigin != "" {
		opts.OriginPatterns = []string{h.allowedOrigin}
	}

	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	sub := &subscriber{conn: ws}
	h.hub.register(sessionID, sub)
	defer h.hub.unregister(sessionID, sub)

	// The channel is push-only; the read loop exists to notice the
	// client disconnecting.
	for {
		if _, _, err := ws.Read(r.Context()); err != nil {
			if websocket.CloseStatus(err) == -1 {
				slog.Debug("WebSocket read ended", "error", err, "session_id", sessionID)
			}
			return
		}
	}
}
