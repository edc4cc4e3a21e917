package api

import (
	"context"
	"net/http"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// ContextDependencies reads and changes the station's attendance context.
type ContextDependencies interface {
	ContextState(ctx context.Context) (types.ContextState, error)
	SelectContext(ctx context.Context, sel types.ContextSelection) (model.ResolvedContext, error)
	ClearContext(ctx context.Context) error
}

// ContextHandler handles the context selection routes.
type ContextHandler struct {
	deps ContextDependencies
}

// NewContextHandler creates a new context handler.
func NewContextHandler(deps ContextDependencies) *ContextHandler {
	return &ContextHandler{deps: deps}
}

// HandleGetContext handles GET /context.
func (h *ContextHandler) HandleGetContext(w http.ResponseWriter, r *http.Request) {
	state, err := h.deps.ContextState(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandlePutContext handles PUT /context.
func (h *ContextHandler) HandlePutContext(w http.ResponseWriter, r *http.Request) {
	var sel types.ContextSelection
	if !readJSON(w, r, &sel) {
		return
	}
	rc, err := h.deps.SelectContext(r.Context(), sel)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

// HandleDeleteContext handles DELETE /context.
func (h *ContextHandler) HandleDeleteContext(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ClearContext(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
