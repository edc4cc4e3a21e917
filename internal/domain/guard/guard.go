// Package guard enforces at most one attendance record per person, context and day.
package guard

import (
	"context"
	"errors"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// Store finds a record colliding with q, or returns model.ErrNotFound.
type Store interface {
	FindExisting(ctx context.Context, q model.ExistingQuery) (model.AttendanceRecord, error)
}

// Roster is the local list of today's committed records.
type Roster interface {
	Find(personID int64, actx model.AttendanceContext, day model.Day) (model.AttendanceRecord, bool)
}

// Guard checks the store first, then the local roster. Both scan and manual
// check-ins go through the same Check.
type Guard struct {
	store  Store
	roster Roster
	loc    *time.Location
	log    logger.Logger
}

// New creates a Guard. loc is the reference zone that defines the calendar day.
func New(store Store, roster Roster, loc *time.Location, log logger.Logger) *Guard {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Guard{store: store, roster: roster, loc: loc, log: log}
}

// Check returns nil when personID may check in to actx at now. A collision is
// reported as *model.DuplicateError; a store failure as a retryable
// *model.PersistenceError, in which case nothing has been written.
func (g *Guard) Check(ctx context.Context, personID int64, actx model.AttendanceContext, now time.Time) error {
	day := model.DayOf(now, g.loc)
	q := model.ExistingQuery{PersonID: personID, Context: actx, From: day.Start(), To: day.End()}

	start := time.Now()
	existing, err := g.store.FindExisting(ctx, q)
	metrics.RecordGuardLatency(metrics.Milliseconds(time.Since(start)))
	switch {
	case err == nil:
		g.log.Debug(ctx, "duplicate found in store",
			logger.Int64("personID", personID), logger.String("context", actx.Key()))
		return &model.DuplicateError{Existing: existing}
	case !errors.Is(err, model.ErrNotFound):
		metrics.RecordErrorByComponent("guard", "persistence")
		return &model.PersistenceError{Op: "find existing", Err: err, Retryable: true}
	}

	if g.roster != nil {
		if rec, ok := g.roster.Find(personID, actx, day); ok {
			g.log.Debug(ctx, "duplicate found in roster",
				logger.Int64("personID", personID), logger.String("context", actx.Key()))
			return &model.DuplicateError{Existing: rec}
		}
	}
	return nil
}
