package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/scopium-app/scopium/internal/github"
)

type reposRequest struct {
	GitHubLink string `json:"github_link"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type chatRequest struct {
	RepositoryLink string `json:"repository_link"`
	Query          string `json:"query"`
}

// HandleRepos handles POST /api/github/repos: it derives a username
// from the submitted profile link and proxies the repository listing.
func (h *Handler) HandleRepos(w http.ResponseWriter, r *http.Request) {
	var req reposRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.GitHubLink == "" {
		Error(w, http.StatusBadRequest, "GitHub link not provided")
		return
	}

	username, err := github.UsernameFromProfileURL(req.GitHubLink)
	if err != nil {
		Error(w, http.StatusBadRequest, "Invalid GitHub link")
		return
	}

	repos, err := h.gh.ListUserRepositories(r.Context(), username)
	if err != nil {
		slog.Warn("Repository listing failed", "username", username, "error", err)
		gatewayError(w, "Failed to fetch repositories from GitHub", err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{"repositories": repos})
}

// HandleSearch handles POST /api/github/search. An empty query is a
// client-side validation error and never reaches GitHub.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		Error(w, http.StatusBadRequest, "Search query not provided")
		return
	}

	repos, err := h.gh.SearchRepositories(r.Context(), req.Query)
	if err != nil {
		slog.Warn("Repository search failed", "error", err)
		gatewayError(w, "Failed to search repositories on GitHub", err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{"repositories": repos})
}

// HandleChat handles POST /api/chat: a direct answer proxy that takes
// a repository locator and a query and returns the reply text.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RepositoryLink == "" {
		Error(w, http.StatusBadRequest, "Repository link not provided")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		Error(w, http.StatusBadRequest, "Query not provided")
		return
	}

	reply, err := h.ans.Answer(r.Context(), req.RepositoryLink, req.Query)
	if err != nil {
		slog.Warn("Answer query failed", "repository_link", req.RepositoryLink, "error", err)
		Error(w, http.StatusBadGateway, "Failed to answer query")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"message": reply})
}
