package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/internal/domain/types"
)

// CheckInDependencies records manual check-ins.
type CheckInDependencies interface {
	CheckInPerson(ctx context.Context, req types.CheckInRequest) notify.Outcome
}

// CheckInsHandler handles manual check-ins.
type CheckInsHandler struct {
	deps CheckInDependencies
}

// NewCheckInsHandler creates a new check-ins handler.
func NewCheckInsHandler(deps CheckInDependencies) *CheckInsHandler {
	return &CheckInsHandler{deps: deps}
}

// HandlePostCheckIn handles POST /checkins and replies with the outcome.
func (h *CheckInsHandler) HandlePostCheckIn(w http.ResponseWriter, r *http.Request) {
	var req types.CheckInRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.PersonID <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: person_id must be positive", ErrBadRequest))
		return
	}
	o := h.deps.CheckInPerson(r.Context(), req)
	writeJSON(w, outcomeStatus(o), o)
}
