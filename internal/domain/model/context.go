package model

import (
	"fmt"
	"strconv"
)

// ContextKind tags the AttendanceContext union.
type ContextKind string

const (
	ContextNone         ContextKind = "none"
	ContextClassSession ContextKind = "class_session"
	ContextEvent        ContextKind = "event"
)

// AttendanceContext is the class session or event a check-in belongs to.
// Exactly one of ClassID/EventID is meaningful, selected by Kind.
type AttendanceContext struct {
	Kind    ContextKind `json:"kind"`
	ClassID int64       `json:"class_id,omitempty"`
	EventID int64       `json:"event_id,omitempty"`
}

// NoContext is the manual/no-context mode.
func NoContext() AttendanceContext { return AttendanceContext{Kind: ContextNone} }

// ClassContext returns a class session context.
func ClassContext(classID int64) AttendanceContext {
	return AttendanceContext{Kind: ContextClassSession, ClassID: classID}
}

// EventContext returns an event context.
func EventContext(eventID int64) AttendanceContext {
	return AttendanceContext{Kind: ContextEvent, EventID: eventID}
}

// IsNone reports whether no context is active. The zero value counts as none.
func (c AttendanceContext) IsNone() bool {
	return c.Kind == "" || c.Kind == ContextNone
}

// Key is the context component of the uniqueness key.
func (c AttendanceContext) Key() string {
	switch c.Kind {
	case ContextClassSession:
		return "class:" + strconv.FormatInt(c.ClassID, 10)
	case ContextEvent:
		return "event:" + strconv.FormatInt(c.EventID, 10)
	default:
		return string(ContextNone)
	}
}

// Validate checks that the tag and the identifier agree.
func (c AttendanceContext) Validate() error {
	switch c.Kind {
	case "", ContextNone:
		if c.ClassID != 0 || c.EventID != 0 {
			return fmt.Errorf("%w: none context carries an id", ErrInvalidContext)
		}
	case ContextClassSession:
		if c.ClassID <= 0 || c.EventID != 0 {
			return fmt.Errorf("%w: class session needs exactly a class id", ErrInvalidContext)
		}
	case ContextEvent:
		if c.EventID <= 0 || c.ClassID != 0 {
			return fmt.Errorf("%w: event needs exactly an event id", ErrInvalidContext)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidContext, c.Kind)
	}
	return nil
}

// ContextFromIDs rebuilds a context from the denormalized record columns.
func ContextFromIDs(classID, eventID *int64) AttendanceContext {
	switch {
	case classID != nil:
		return ClassContext(*classID)
	case eventID != nil:
		return EventContext(*eventID)
	default:
		return NoContext()
	}
}

// ResolvedContext is the output of context resolution: the context plus its display label.
type ResolvedContext struct {
	Context AttendanceContext `json:"context"`
	Label   string            `json:"label"`
}
