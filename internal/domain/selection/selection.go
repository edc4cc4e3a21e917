// Package selection tracks which class session or event check-ins belong to.
//
// A station either runs with a fixed context given at construction, or lets the
// operator pick one of today's sessions or events. At most one is active; it
// is forgotten when the day changes.
package selection

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
)

// Schedule is the read-only lookup of sessions and events.
type Schedule interface {
	SessionsOn(ctx context.Context, weekday time.Weekday) ([]model.ClassSession, error)
	EventsOn(ctx context.Context, day model.Day) ([]model.Event, error)
}

// Options are the contexts selectable today.
type Options struct {
	Day      model.Day
	Sessions []model.ClassSession
	Events   []model.Event
}

// FindSession returns the session for classID.
func (o Options) FindSession(classID int64) (model.ClassSession, bool) {
	for _, s := range o.Sessions {
		if s.ClassID == classID {
			return s, true
		}
	}
	return model.ClassSession{}, false
}

// FindEvent returns the event with eventID.
func (o Options) FindEvent(eventID int64) (model.Event, bool) {
	for _, e := range o.Events {
		if e.ID == eventID {
			return e, true
		}
	}
	return model.Event{}, false
}

// Selector resolves the active attendance context.
type Selector struct {
	schedule Schedule
	loc      *time.Location
	clock    clock.Clock
	fixed    *model.AttendanceContext
	required map[string]struct{}
	log      logger.Logger

	mu         sync.RWMutex
	current    *model.ResolvedContext
	currentDay model.Day
	fixedLabel map[string]string // day -> label
}

// New creates a Selector. Students require a context unless WithRequiredRoles says otherwise.
func New(schedule Schedule, opts ...Option) *Selector {
	s := &Selector{
		schedule:   schedule,
		loc:        time.Local,
		clock:      clock.New(),
		required:   map[string]struct{}{model.RoleStudent: {}},
		log:        logger.Nop(),
		fixedLabel: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the reference time zone.
func (s *Selector) Location() *time.Location { return s.loc }

// Today returns the current calendar day in the reference zone.
func (s *Selector) Today() model.Day { return model.DayOf(s.clock.Now(), s.loc) }

// Fixed reports whether the context was fixed at construction.
func (s *Selector) Fixed() bool { return s.fixed != nil }

// RequiresContext reports whether role cannot check in without a context.
func (s *Selector) RequiresContext(role string) bool {
	_, ok := s.required[role]
	return ok
}

// Options returns today's sessions and events.
func (s *Selector) Options(ctx context.Context) (Options, error) {
	today := s.Today()
	sessions, err := s.schedule.SessionsOn(ctx, today.Weekday())
	if err != nil {
		return Options{}, fmt.Errorf("load sessions: %w", err)
	}
	events, err := s.schedule.EventsOn(ctx, today)
	if err != nil {
		return Options{}, fmt.Errorf("load events: %w", err)
	}
	return Options{Day: today, Sessions: sessions, Events: events}, nil
}

// SelectSession makes today's session for classID the active context and clears any event.
func (s *Selector) SelectSession(ctx context.Context, classID int64) (model.ResolvedContext, error) {
	if s.Fixed() {
		return model.ResolvedContext{}, ErrContextFixed
	}
	opts, err := s.Options(ctx)
	if err != nil {
		return model.ResolvedContext{}, err
	}
	session, ok := opts.FindSession(classID)
	if !ok {
		return model.ResolvedContext{}, fmt.Errorf("%w: class %d", ErrUnknownContext, classID)
	}
	rc := model.ResolvedContext{Context: model.ClassContext(classID), Label: session.Label()}
	s.set(rc, opts.Day)
	s.log.Info(ctx, "session selected", logger.Int64("classID", classID), logger.String("label", rc.Label))
	return rc, nil
}

// SelectEvent makes today's event the active context and clears any session.
func (s *Selector) SelectEvent(ctx context.Context, eventID int64) (model.ResolvedContext, error) {
	if s.Fixed() {
		return model.ResolvedContext{}, ErrContextFixed
	}
	opts, err := s.Options(ctx)
	if err != nil {
		return model.ResolvedContext{}, err
	}
	ev, ok := opts.FindEvent(eventID)
	if !ok {
		return model.ResolvedContext{}, fmt.Errorf("%w: event %d", ErrUnknownContext, eventID)
	}
	rc := model.ResolvedContext{Context: model.EventContext(eventID), Label: ev.Title}
	s.set(rc, opts.Day)
	s.log.Info(ctx, "event selected", logger.Int64("eventID", eventID), logger.String("label", rc.Label))
	return rc, nil
}

func (s *Selector) set(rc model.ResolvedContext, day model.Day) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &rc
	s.currentDay = day
}

// ClearSelection drops the selected context and any cached fixed label.
func (s *Selector) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.fixedLabel = make(map[string]string)
}

// Current returns the selected context, if it was selected today.
func (s *Selector) Current() (model.ResolvedContext, bool) {
	today := s.Today()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || !s.currentDay.Equal(today) {
		return model.ResolvedContext{}, false
	}
	return *s.current, true
}

// Resolve returns the context for a check-in by person at this moment.
func (s *Selector) Resolve(ctx context.Context, person model.Person) (model.ResolvedContext, error) {
	if s.fixed != nil {
		return model.ResolvedContext{Context: *s.fixed, Label: s.labelForFixed(ctx)}, nil
	}
	if rc, ok := s.Current(); ok {
		return rc, nil
	}
	if s.RequiresContext(person.Role) {
		return model.ResolvedContext{}, fmt.Errorf("%w: role %q", model.ErrContextRequired, person.Role)
	}
	return model.ResolvedContext{Context: model.NoContext()}, nil
}

// labelForFixed looks the fixed context up in today's options and falls back
// to a generic label when it is not scheduled today.
func (s *Selector) labelForFixed(ctx context.Context) string {
	day := s.Today().String()
	s.mu.RLock()
	label, ok := s.fixedLabel[day]
	s.mu.RUnlock()
	if ok {
		return label
	}

	switch s.fixed.Kind {
	case model.ContextClassSession:
		label = "class " + strconv.FormatInt(s.fixed.ClassID, 10)
	case model.ContextEvent:
		label = "event " + strconv.FormatInt(s.fixed.EventID, 10)
	}
	opts, err := s.Options(ctx)
	if err != nil {
		s.log.Warn(ctx, "fixed context label lookup failed", logger.Error(err))
		return label
	}
	switch s.fixed.Kind {
	case model.ContextClassSession:
		if session, found := opts.FindSession(s.fixed.ClassID); found {
			label = session.Label()
		}
	case model.ContextEvent:
		if ev, found := opts.FindEvent(s.fixed.EventID); found {
			label = ev.Title
		}
	}

	s.mu.Lock()
	s.fixedLabel[day] = label
	s.mu.Unlock()
	return label
}
