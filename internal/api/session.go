package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/scopium-app/scopium/internal/chat"
	"github.com/scopium-app/scopium/internal/domain"
	"github.com/scopium-app/scopium/internal/identity"
)

type selectRequest struct {
	Repository domain.Repository `json:"repository"`
}

type sendRequest struct {
	Text string `json:"text"`
}

func (h *Handler) controller(w http.ResponseWriter, r *http.Request) *chat.Controller {
	sessionID := identity.SessionIDFromContext(r.Context())
	if sessionID == "" {
		Error(w, http.StatusUnauthorized, "no session identity")
		return nil
	}
	return h.sessions.Get(sessionID)
}

// HandleSelect handles POST /api/session/select.
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	if ctrl == nil {
		return
	}

	var req selectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Repository.ID == 0 {
		Error(w, http.StatusBadRequest, "repository is required")
		return
	}

	ctrl.SelectRepo(r.Context(), req.Repository)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSend handles POST /api/session/message. The send is
// asynchronous: the user message is stored before this returns, the
// assistant reply (or in-band error) arrives later via the
// conversation read or the websocket push.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	if ctrl == nil {
		return
	}

	var req sendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		Error(w, http.StatusBadRequest, "Message text not provided")
		return
	}
	if _, ok := ctrl.Selected(); !ok {
		Error(w, http.StatusConflict, "no repository selected")
		return
	}

	ctrl.SendMessage(r.Context(), req.Text)
	JSON(w, http.StatusAccepted, map[string]any{"state": ctrl.State()})
}

// HandleConversation handles GET /api/session/conversation?repo_id=N.
func (h *Handler) HandleConversation(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	if ctrl == nil {
		return
	}

	repoID, err := strconv.ParseInt(r.URL.Query().Get("repo_id"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "repo_id is required")
		return
	}

	msgs, err := ctrl.Conversation(repoID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownRepository) {
			Error(w, http.StatusNotFound, "no conversation for repository")
			return
		}
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// HandleHistory handles GET /api/session/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	if ctrl == nil {
		return
	}
	JSON(w, http.StatusOK, map[string]any{"repositories": ctrl.History()})
}
