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

// AssignDependencies defines the interface for exposure assignment.
type AssignDependencies interface {
	Assign(ctx context.Context, sessionID, visitorID, sectionID string) (model.Exposure, error)
}

// AssignHandler handles experiment bucket assignment requests.
type AssignHandler struct {
	deps AssignDependencies
}

// NewAssignHandler creates a new assign handler.
func NewAssignHandler(deps AssignDependencies) *AssignHandler {
	return &AssignHandler{deps: deps}
}

type assignRequest struct {
	SessionID string `json:"sessionId"`
	VisitorID string `json:"visitorId"`
	SectionID string `json:"sectionId"`
}

func (a assignRequest) validate() error {
	switch {
	case strings.TrimSpace(a.SessionID) == "":
		return errors.New("missing sessionId")
	case strings.TrimSpace(a.VisitorID) == "":
		return errors.New("missing visitorId")
	case strings.TrimSpace(a.SectionID) == "":
		return errors.New("missing sectionId")
	}
	return nil
}

// HandlePostAssign handles POST /assign requests.
func (h *AssignHandler) HandlePostAssign(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_assign"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	exposure, err := h.deps.Assign(r.Context(), req.SessionID, req.VisitorID, req.SectionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, exposure)
}
