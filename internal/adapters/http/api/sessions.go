// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/pagepulse/internal/domain/model"
)

// SessionDependencies defines the interface for session creation.
type SessionDependencies interface {
	StartSession(ctx context.Context, info model.PageInfo) (string, error)
}

// SessionsHandler handles session creation requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// sessionRequest mirrors the page script's session bootstrap body.
type sessionRequest struct {
	Page model.PageInfo `json:"page"`
}

func (s sessionRequest) validate() error {
	switch {
	case strings.TrimSpace(s.Page.URL) == "":
		return errors.New("missing page.url")
	case strings.TrimSpace(s.Page.UserAgent) == "":
		return errors.New("missing page.userAgent")
	}
	return nil
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

// HandlePostSession handles POST /sessions requests.
func (h *SessionsHandler) HandlePostSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	sessionID, err := h.deps.StartSession(r.Context(), req.Page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sessionID})
}
