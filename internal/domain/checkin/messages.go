package checkin

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/notify"
)

// message renders the operator-facing text for an outcome.
func message(o notify.Outcome, loc *time.Location) string {
	name := "This person"
	if o.Person != nil && o.Person.Name != "" {
		name = o.Person.Name
	}
	switch o.Kind {
	case notify.KindCommitted:
		if o.Label != "" {
			return fmt.Sprintf("%s checked in to %s", name, o.Label)
		}
		return name + " checked in"
	case notify.KindDuplicate:
		if o.Existing != nil && !o.Existing.CheckInAt.IsZero() {
			msg := fmt.Sprintf("%s already checked in at %s", name, o.Existing.CheckInAt.In(loc).Format("15:04"))
			if o.Existing.Label != "" {
				msg += " (" + o.Existing.Label + ")"
			}
			return msg
		}
		return name + " already checked in today"
	case notify.KindPersonNotFound:
		if o.Payload != "" {
			return fmt.Sprintf("No active person for %q", o.Payload)
		}
		return "No active person with that id"
	case notify.KindPayloadMalformed:
		return fmt.Sprintf("Unreadable code %q", o.Payload)
	case notify.KindContextRequired:
		return name + " needs a class session or event selected"
	default:
		return fmt.Sprintf("Could not record %s's check-in, try again", name)
	}
}

// outcomeFor builds the outcome of a finished attempt.
func outcomeFor(err error, person *model.Person, rec *model.AttendanceRecord, label, payload, stationID string, at time.Time) notify.Outcome {
	kind := notify.KindOf(err)
	o := notify.Outcome{
		Kind:      kind,
		Category:  notify.CategoryOf(kind),
		Person:    person,
		Record:    rec,
		Label:     label,
		Payload:   payload,
		StationID: stationID,
		At:        at,
	}
	var dup *model.DuplicateError
	if errors.As(err, &dup) {
		existing := dup.Existing
		o.Existing = &existing
		if person == nil && existing.PersonName != "" {
			o.Person = &model.Person{ID: existing.PersonID, Name: existing.PersonName}
		}
	}
	var pe *model.PersistenceError
	if errors.As(err, &pe) {
		o.Retryable = pe.Retryable
	}
	return o
}
