// Package checkin runs candidate scans and manual check-ins through identity,
// context and uniqueness resolution and commits at most one attendance record
// per person, context and day.
package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/suppress"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// Store is the write side of the attendance store. Insert returns
// model.ErrUniqueViolation when the uniqueness key is already taken.
type Store interface {
	Insert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)
	FindExisting(ctx context.Context, q model.ExistingQuery) (model.AttendanceRecord, error)
}

// Roster receives committed records.
type Roster interface {
	Prepend(rec model.AttendanceRecord)
}

// Request is one commit attempt.
type Request struct {
	Person  model.Person
	Context model.ResolvedContext
	Method  model.VerificationMethod
	Note    string
	Payload string
}

// Committer writes attendance records.
type Committer struct {
	store     Store
	roster    Roster
	cache     suppress.Cache
	clock     clock.Clock
	loc       *time.Location
	stationID string
	log       logger.Logger
}

// CommitterOption configures a Committer.
type CommitterOption func(*Committer)

// WithCommitClock injects the clock that stamps CheckInAt.
func WithCommitClock(clk clock.Clock) CommitterOption {
	return func(c *Committer) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithCommitLocation sets the reference zone for the uniqueness day.
func WithCommitLocation(loc *time.Location) CommitterOption {
	return func(c *Committer) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithStationID stamps records with the committing station.
func WithStationID(id string) CommitterOption {
	return func(c *Committer) { c.stationID = id }
}

// WithCommitLogger sets the logger.
func WithCommitLogger(l logger.Logger) CommitterOption {
	return func(c *Committer) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCommitter creates a Committer. roster and cache may be nil.
func NewCommitter(store Store, roster Roster, cache suppress.Cache, opts ...CommitterOption) *Committer {
	c := &Committer{
		store:  store,
		roster: roster,
		cache:  cache,
		clock:  clock.New(),
		loc:    time.Local,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Commit inserts the record. A uniqueness violation is returned as
// *model.DuplicateError carrying the record that won; any other failure as a
// retryable *model.PersistenceError, leaving roster and cache untouched.
func (c *Committer) Commit(ctx context.Context, req Request) (model.AttendanceRecord, error) {
	rec := model.AttendanceRecord{
		ID:         uuid.NewString(),
		PersonID:   req.Person.ID,
		PersonName: req.Person.Name,
		CheckInAt:  c.clock.Now(),
		Method:     req.Method,
		Note:       req.Note,
		Label:      req.Context.Label,
		Payload:    req.Payload,
		StationID:  c.stationID,
	}
	rec.SetContext(req.Context.Context)

	start := time.Now()
	saved, err := c.store.Insert(ctx, rec)
	metrics.RecordCommitLatency(metrics.Milliseconds(time.Since(start)))
	if err != nil {
		if errors.Is(err, model.ErrUniqueViolation) {
			return model.AttendanceRecord{}, c.duplicate(ctx, rec)
		}
		metrics.RecordErrorByComponent("committer", "persistence")
		return model.AttendanceRecord{}, &model.PersistenceError{Op: "insert attendance", Err: err, Retryable: true}
	}

	if c.roster != nil {
		c.roster.Prepend(saved)
	}
	if c.cache != nil && req.Method == model.MethodScannedCode && req.Payload != "" {
		c.cache.MarkAccepted(ctx, req.Payload)
	}
	return saved, nil
}

// duplicate fetches the record that holds the key. The violation alone is
// enough to report a duplicate if the lookup fails.
func (c *Committer) duplicate(ctx context.Context, rec model.AttendanceRecord) error {
	day := model.DayOf(rec.CheckInAt, c.loc)
	existing, err := c.store.FindExisting(ctx, model.ExistingQuery{
		PersonID: rec.PersonID,
		Context:  rec.Context(),
		From:     day.Start(),
		To:       day.End(),
	})
	if err != nil {
		c.log.Warn(ctx, "existing record lookup after unique violation failed",
			logger.Int64("personID", rec.PersonID), logger.Error(err))
		return &model.DuplicateError{Existing: model.AttendanceRecord{PersonID: rec.PersonID, PersonName: rec.PersonName}}
	}
	return &model.DuplicateError{Existing: existing}
}
