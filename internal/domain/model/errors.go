package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds for check-in failures. Callers classify with errors.Is/As.
var (
	ErrPayloadMalformed    = errors.New("payload malformed")
	ErrPersonNotFound      = errors.New("person not found")
	ErrPersonInactive      = fmt.Errorf("%w: person inactive", ErrPersonNotFound)
	ErrContextRequired     = errors.New("attendance context required")
	ErrDuplicateAttendance = errors.New("duplicate attendance")
	ErrPersistence         = errors.New("persistence error")
	ErrInvalidContext      = errors.New("invalid attendance context")
)

// Store-level sentinels returned by repository adapters.
var (
	ErrNotFound        = errors.New("not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// DuplicateError reports an existing record for the same uniqueness key.
type DuplicateError struct {
	Existing AttendanceRecord
}

func (e *DuplicateError) Error() string {
	if e.Existing.CheckInAt.IsZero() {
		return ErrDuplicateAttendance.Error()
	}
	return fmt.Sprintf("%s: person %d already checked in at %s",
		ErrDuplicateAttendance, e.Existing.PersonID, e.Existing.CheckInAt.Format(time.RFC3339))
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicateAttendance }

// PersistenceError wraps a store failure. Retryable failures must be retried
// through the whole uniqueness check, never by re-sending the insert alone.
type PersistenceError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }
