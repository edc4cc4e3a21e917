package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

const (
	defaultBadgeSize = 256
	maxBadgeSize     = 1024
)

// PeopleDependencies looks people up.
type PeopleDependencies interface {
	Search(ctx context.Context, term string) ([]model.Person, error)
	Badge(ctx context.Context, personID int64, size int) ([]byte, error)
}

// PeopleHandler handles people search and badge rendering.
type PeopleHandler struct {
	deps PeopleDependencies
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(deps PeopleDependencies) *PeopleHandler {
	return &PeopleHandler{deps: deps}
}

// HandleSearch handles GET /people?q=term.
func (h *PeopleHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	people, err := h.deps.Search(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if people == nil {
		people = []model.Person{}
	}
	writeJSON(w, http.StatusOK, types.PeopleResponse{Query: q, People: people})
}

// HandleBadge handles GET /people/{id}/badge.png?size=N.
func (h *PeopleHandler) HandleBadge(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid person id", ErrBadRequest))
		return
	}
	size := defaultBadgeSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size <= 0 || size > maxBadgeSize {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: size must be 1..%d", ErrBadRequest, maxBadgeSize))
			return
		}
	}
	png, err := h.deps.Badge(r.Context(), id, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
