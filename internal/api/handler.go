// Package api provides the HTTP surface of the server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scopium-app/scopium/internal/answer"
	"github.com/scopium-app/scopium/internal/chat"
	"github.com/scopium-app/scopium/internal/domain"
	"github.com/scopium-app/scopium/internal/github"
	"github.com/scopium-app/scopium/internal/githubauth"
)

// maxRequestBodySize caps POST bodies (1MB).
const maxRequestBodySize = 1 << 20

// Gateway is the slice of the GitHub gateway the handlers need.
type Gateway interface {
	ListUserRepositories(ctx context.Context, username string) ([]domain.Repository, error)
	SearchRepositories(ctx context.Context, query string) ([]domain.Repository, error)
}

// Handler serves the GitHub proxy and chat-session endpoints.
type Handler struct {
	gh       Gateway
	ans      answer.Answerer
	sessions *chat.Sessions
}

// NewHandler creates a Handler with its dependencies.
func NewHandler(gh Gateway, ans answer.Answerer, sessions *chat.Sessions) *Handler {
	return &Handler{gh: gh, ans: ans, sessions: sessions}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/github/repos", h.HandleRepos)
		r.Post("/github/search", h.HandleSearch)
		r.Post("/chat", h.HandleChat)

		r.Route("/session", func(r chi.Router) {
			r.Post("/select", h.HandleSelect)
			r.Post("/message", h.HandleSend)
			r.Get("/conversation", h.HandleConversation)
			r.Get("/history", h.HandleHistory)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// gatewayError maps the gateway error taxonomy onto HTTP. Upstream
// failures keep their status and body so clients can inspect what
// GitHub said; transport failures become 502.
func gatewayError(w http.ResponseWriter, message string, err error) {
	var up *github.UpstreamError
	var ne *github.NetworkError
	var se *githubauth.SigningError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		Error(w, http.StatusBadRequest, message)
	case errors.As(err, &up):
		JSON(w, up.StatusCode, map[string]any{
			"error":       message,
			"status_code": up.StatusCode,
			"response":    up.JSONBody(),
		})
	case errors.As(err, &ne):
		Error(w, http.StatusBadGateway, "GitHub is unreachable")
	case errors.As(err, &se):
		Error(w, http.StatusInternalServerError, "Failed to generate app credential")
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
