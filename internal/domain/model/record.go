package model

import "time"

// VerificationMethod records how presence was asserted.
type VerificationMethod string

const (
	MethodManual      VerificationMethod = "manual"
	MethodScannedCode VerificationMethod = "scanned_code"
)

// AttendanceRecord is a committed check-in. Created once, never mutated.
type AttendanceRecord struct {
	ID         string             `json:"id"`
	PersonID   int64              `json:"person_id"`
	PersonName string             `json:"person_name"`
	ClassID    *int64             `json:"class_id,omitempty"`
	EventID    *int64             `json:"event_id,omitempty"`
	CheckInAt  time.Time          `json:"check_in_at"`
	Method     VerificationMethod `json:"method"`
	Note       string             `json:"note,omitempty"`
	Label      string             `json:"label,omitempty"`
	Payload    string             `json:"payload,omitempty"`
	StationID  string             `json:"station_id,omitempty"`
}

// Context rebuilds the attendance context from the denormalized ids.
func (r AttendanceRecord) Context() AttendanceContext {
	return ContextFromIDs(r.ClassID, r.EventID)
}

// SetContext denormalizes c onto the record.
func (r *AttendanceRecord) SetContext(c AttendanceContext) {
	r.ClassID, r.EventID = nil, nil
	switch c.Kind {
	case ContextClassSession:
		id := c.ClassID
		r.ClassID = &id
	case ContextEvent:
		id := c.EventID
		r.EventID = &id
	}
}

// ExistingQuery selects records that would collide with a new check-in.
// A none context matches any record of the person in the range.
type ExistingQuery struct {
	PersonID int64
	Context  AttendanceContext
	From     time.Time
	To       time.Time
}

// Matches applies the query to r.
func (q ExistingQuery) Matches(r AttendanceRecord) bool {
	if r.PersonID != q.PersonID {
		return false
	}
	if r.CheckInAt.Before(q.From) || !r.CheckInAt.Before(q.To) {
		return false
	}
	switch q.Context.Kind {
	case ContextClassSession:
		return r.ClassID != nil && *r.ClassID == q.Context.ClassID
	case ContextEvent:
		return r.EventID != nil && *r.EventID == q.Context.EventID
	default:
		return true
	}
}
