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

// EventDependencies defines the interface for event dispatch.
type EventDependencies interface {
	Dispatch(ctx context.Context, sessionID string, events []model.BrowserEvent) error
}

// EventsHandler handles browser event batches.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventsRequest is one relay batch from the page script.
type eventsRequest struct {
	SessionID string               `json:"sessionId"`
	Events    []model.BrowserEvent `json:"events"`
}

func (e eventsRequest) validate() error {
	switch {
	case strings.TrimSpace(e.SessionID) == "":
		return errors.New("missing sessionId")
	case len(e.Events) == 0:
		return errors.New("missing events")
	}
	return nil
}

type ackResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
}

// HandlePostEvents handles POST /events requests.
func (h *EventsHandler) HandlePostEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_events"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req eventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	if err := h.deps.Dispatch(r.Context(), req.SessionID, req.Events); err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Accepted: len(req.Events)})
}
