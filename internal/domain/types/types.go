// Package types contains request and response bodies shared by the HTTP API and its clients.
package types

import (
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// ScanRequest is one decoded payload posted by a capture station.
type ScanRequest struct {
	Payload    string     `json:"payload"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// ScanAck is the transient acknowledgment for a posted scan. It is not a commit.
type ScanAck struct {
	Acknowledged bool `json:"acknowledged"`
}

// CheckInRequest is a manual check-in.
type CheckInRequest struct {
	PersonID int64  `json:"person_id"`
	Note     string `json:"note,omitempty"`
}

// ContextSelection selects a class session or event for today. Kind is "class_session" or "event".
type ContextSelection struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// ContextState lists today's selectable options and the current selection.
type ContextState struct {
	Fixed    bool                   `json:"fixed"`
	Sessions []model.ClassSession   `json:"sessions"`
	Events   []model.Event          `json:"events"`
	Current  *model.ResolvedContext `json:"current,omitempty"`
}

// RosterResponse is today's in-memory roster, newest first.
type RosterResponse struct {
	Day     string                   `json:"day"`
	Count   int                      `json:"count"`
	Records []model.AttendanceRecord `json:"records"`
}

// PeopleResponse wraps search results.
type PeopleResponse struct {
	Query  string         `json:"query"`
	People []model.Person `json:"people"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
