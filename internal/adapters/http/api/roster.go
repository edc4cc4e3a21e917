package api

import (
	"context"
	"net/http"

	"github.com/okian/rollcall/internal/domain/types"
)

// RosterDependencies exposes today's check-ins.
type RosterDependencies interface {
	Roster(ctx context.Context) types.RosterResponse
}

// RosterHandler handles roster requests.
type RosterHandler struct {
	deps RosterDependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

// HandleGetRoster handles GET /roster.
func (h *RosterHandler) HandleGetRoster(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Roster(r.Context()))
}
