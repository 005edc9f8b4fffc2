package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/upskill/internal/app"
	"github.com/okian/upskill/internal/domain/types"
)

// maxEventBytes bounds a POST /events body.
const maxEventBytes = 1 << 20

// EventDependencies defines the interface for event processing dependencies.
type EventDependencies interface {
	HandleEvent(ctx context.Context, raw []byte) service.Result
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events. The body goes to the supervisor
// untouched; the result's error code picks the status.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		msg := "could not read request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		writeError(w, types.NewError(types.CodeInvalidPayload, msg, nil))
		return
	}

	res := h.deps.HandleEvent(r.Context(), raw)
	if res.Replayed {
		w.Header().Set(ReplayedHeader, "true")
	}
	writeJSON(w, StatusFor(res.Code()), res)
}
