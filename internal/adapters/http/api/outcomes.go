package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/rollcall/internal/domain/notify"
)

const outcomeBuffer = 32

// OutcomeDependencies streams check-in outcomes.
type OutcomeDependencies interface {
	Subscribe(buffer int) (<-chan notify.Outcome, func())
}

// OutcomesHandler streams outcomes as server-sent events.
type OutcomesHandler struct {
	deps OutcomeDependencies
}

// NewOutcomesHandler creates a new outcomes handler.
func NewOutcomesHandler(deps OutcomeDependencies) *OutcomesHandler {
	return &OutcomesHandler{deps: deps}
}

// HandleStream handles GET /outcomes. Each outcome is sent as one event
// named after its kind. The stream ends when the client goes away or the
// station stops.
func (h *OutcomesHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Errorf("streaming unsupported"))
		return
	}
	outcomes, cancel := h.deps.Subscribe(outcomeBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case o, ok := <-outcomes:
			if !ok {
				return
			}
			data, err := json.Marshal(o)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", o.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
