// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/domain/identity"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/internal/domain/selection"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the station implementation.
type Dependencies interface {
	ScanDependencies
	CheckInDependencies
	PeopleDependencies
	ContextDependencies
	RosterDependencies
	OutcomeDependencies
}

// Server wires HTTP routes for the station API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	scansHandler    *ScansHandler
	checkinsHandler *CheckInsHandler
	peopleHandler   *PeopleHandler
	contextHandler  *ContextHandler
	rosterHandler   *RosterHandler
	outcomesHandler *OutcomesHandler

	auth    *Authenticator
	limiter *rateLimiter
	logger  logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator requires bearer tokens on mutating routes.
func WithAuthenticator(a *Authenticator) Option {
	return func(s *Server) { s.auth = a }
}

// WithRateLimit caps requests per client per minute. Zero disables it.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = newRateLimiter(perMinute)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		scansHandler:    NewScansHandler(deps),
		checkinsHandler: NewCheckInsHandler(deps),
		peopleHandler:   NewPeopleHandler(deps),
		contextHandler:  NewContextHandler(deps),
		rosterHandler:   NewRosterHandler(deps),
		outcomesHandler: NewOutcomesHandler(deps),
		logger:          logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", s.read(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /roster", s.read(s.rosterHandler.HandleGetRoster, "roster"))
	mux.HandleFunc("GET /people", s.read(s.peopleHandler.HandleSearch, "people"))
	mux.HandleFunc("GET /people/{id}/badge.png", s.read(s.peopleHandler.HandleBadge, "badge"))
	mux.HandleFunc("GET /context", s.read(s.contextHandler.HandleGetContext, "context"))
	mux.HandleFunc("GET /outcomes", s.read(s.outcomesHandler.HandleStream, "outcomes"))

	mux.HandleFunc("POST /scans", s.write(s.scansHandler.HandlePostScan, "scans"))
	mux.HandleFunc("POST /checkins", s.write(s.checkinsHandler.HandlePostCheckIn, "checkins"))
	mux.HandleFunc("PUT /context", s.write(s.contextHandler.HandlePutContext, "context"))
	mux.HandleFunc("DELETE /context", s.write(s.contextHandler.HandleDeleteContext, "context"))
}

// read wraps a query route with rate limiting and metrics.
func (s *Server) read(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	return MetricsMiddleware(s.rateLimit(h), endpoint)
}

// write additionally requires a station token when authentication is on.
func (s *Server) write(h http.HandlerFunc, endpoint string) http.HandlerFunc {
	if s.auth != nil {
		h = s.auth.Middleware(h)
	}
	return MetricsMiddleware(s.rateLimit(h), endpoint)
}

func (s *Server) rateLimit(h http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return h
	}
	return s.limiter.Middleware(h)
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 8 << 10

// readJSON decodes a bounded request body into v. On failure it writes a 400,
// or a 413 when the body exceeds maxBodyBytes, and returns false.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	writeError(w, status, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// writeDomainError maps a domain error onto a status and code.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrPayloadMalformed),
		errors.Is(err, model.ErrInvalidContext),
		errors.Is(err, identity.ErrSearchTermTooShort),
		errors.Is(err, identity.ErrInvalidBadge):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrPersonNotFound):
		return http.StatusNotFound, "person_not_found"
	case errors.Is(err, selection.ErrUnknownContext):
		return http.StatusNotFound, "context_not_found"
	case errors.Is(err, selection.ErrContextFixed):
		return http.StatusConflict, "context_fixed"
	case errors.Is(err, service.ErrScanInputDisabled):
		return http.StatusConflict, "scan_input_disabled"
	case errors.Is(err, service.ErrNotRunning),
		errors.Is(err, model.ErrPersistence):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// outcomeStatus is the reply status of a manual check-in.
func outcomeStatus(o notify.Outcome) int {
	switch o.Kind {
	case notify.KindCommitted:
		return http.StatusCreated
	case notify.KindDuplicate:
		return http.StatusOK
	case notify.KindPersonNotFound:
		return http.StatusNotFound
	case notify.KindPayloadMalformed:
		return http.StatusBadRequest
	case notify.KindContextRequired:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}
