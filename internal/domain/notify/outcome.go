// Package notify delivers check-in outcomes to operators and listeners.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// Kind is the terminal state of one check-in attempt.
type Kind string

const (
	KindCommitted        Kind = "committed"
	KindDuplicate        Kind = "duplicate"
	KindPersonNotFound   Kind = "person_not_found"
	KindPayloadMalformed Kind = "payload_malformed"
	KindContextRequired  Kind = "context_required"
	KindPersistenceError Kind = "persistence_error"
)

// Category is how an operator display should present an outcome.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryInfo    Category = "info"
	CategoryError   Category = "error"
)

// CategoryOf maps a kind to its display category.
func CategoryOf(k Kind) Category {
	switch k {
	case KindCommitted:
		return CategorySuccess
	case KindDuplicate, KindPersonNotFound:
		return CategoryInfo
	default:
		return CategoryError
	}
}

// KindOf classifies a check-in error. A nil error is a commit.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindCommitted
	case errors.Is(err, model.ErrDuplicateAttendance):
		return KindDuplicate
	case errors.Is(err, model.ErrPersonNotFound):
		return KindPersonNotFound
	case errors.Is(err, model.ErrPayloadMalformed):
		return KindPayloadMalformed
	case errors.Is(err, model.ErrContextRequired):
		return KindContextRequired
	default:
		return KindPersistenceError
	}
}

// Outcome is published exactly once per terminal state.
type Outcome struct {
	Kind      Kind                    `json:"kind"`
	Category  Category                `json:"category"`
	Person    *model.Person           `json:"person,omitempty"`
	Record    *model.AttendanceRecord `json:"record,omitempty"`
	Existing  *model.AttendanceRecord `json:"existing,omitempty"`
	Label     string                  `json:"label,omitempty"`
	Payload   string                  `json:"payload,omitempty"`
	Message   string                  `json:"message"`
	Retryable bool                    `json:"retryable,omitempty"`
	StationID string                  `json:"station_id,omitempty"`
	At        time.Time               `json:"at"`
}

// Notifier receives outcomes.
type Notifier interface {
	Notify(ctx context.Context, o Outcome) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, o Outcome) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, o Outcome) error { return f(ctx, o) }

// Multi fans out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers to all notifiers even if some fail.
func (m Multi) Notify(ctx context.Context, o Outcome) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
