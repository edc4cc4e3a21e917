package api

import (
	"context"
	"net/http"

	"github.com/okian/rollcall/internal/domain/types"
)

// ScanDependencies accepts decoded payloads.
type ScanDependencies interface {
	SubmitScan(ctx context.Context, req types.ScanRequest) (types.ScanAck, error)
}

// ScansHandler handles scan submissions.
type ScansHandler struct {
	deps ScanDependencies
}

// NewScansHandler creates a new scans handler.
func NewScansHandler(deps ScanDependencies) *ScansHandler {
	return &ScansHandler{deps: deps}
}

// HandlePostScan handles POST /scans. The 202 reply only acknowledges
// receipt; the check-in outcome is published on /outcomes.
func (h *ScansHandler) HandlePostScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	if !readJSON(w, r, &req) {
		return
	}
	ack, err := h.deps.SubmitScan(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
