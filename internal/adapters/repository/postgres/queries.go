package postgres

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/okian/rollcall/internal/domain/model"
)

// UniqueIndex is the constraint that backs the at-most-once guarantee.
const UniqueIndex = "attendance_records_unique_key"

var (
	personColumns  = []string{"id", "name", "national_id", "COALESCE(code, '')", "COALESCE(badge, '')", "role", "active"}
	sessionColumns = []string{"class_id", "weekday", "subject", "class_name", "professor", "starts_at"}
	eventColumns   = []string{"id", "title", "description", "starts_on", "ends_on"}
	recordColumns  = []string{
		"id", "person_id", "person_name", "class_id", "event_id", "check_in_at",
		"method", "note", "label", "payload", "station_id",
	}
)

// queries builds every statement the store runs.
type queries struct {
	sb  sq.StatementBuilderType
	loc *time.Location
}

func newQueries(loc *time.Location) queries {
	return queries{sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar), loc: loc}
}

func (q queries) personByID(id int64) sq.SelectBuilder {
	return q.sb.Select(personColumns...).From("people").Where(sq.Eq{"id": id}).Limit(1)
}

func (q queries) personByToken(token string) sq.SelectBuilder {
	return q.sb.Select(personColumns...).From("people").
		Where(sq.Or{sq.Eq{"code": token}, sq.Eq{"badge": token}}).
		OrderBy("id").
		Limit(1)
}

// escapeLike escapes LIKE wildcards so term matches literally.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// search ranks exact identifier matches, then name prefix, then name substring.
func (q queries) search(term string, limit int) sq.SelectBuilder {
	escaped := escapeLike(term)
	exact := sq.Or{
		sq.Expr("id::text = ?", term),
		sq.Eq{"code": term},
		sq.Eq{"badge": term},
		sq.Eq{"national_id": term},
	}
	b := q.sb.Select(personColumns...).From("people").
		Where(sq.Eq{"active": true}).
		Where(sq.Or{exact, sq.ILike{"name": "%" + escaped + "%"}}).
		OrderByClause(
			"CASE WHEN id::text = ? OR code = ? OR badge = ? OR national_id = ? THEN 0 WHEN name ILIKE ? THEN 1 ELSE 2 END",
			term, term, term, term, escaped+"%",
		).
		OrderBy("name", "id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return b
}

func (q queries) sessionsOn(weekday time.Weekday) sq.SelectBuilder {
	return q.sb.Select(sessionColumns...).From("class_sessions").
		Where(sq.Eq{"weekday": int(weekday)}).
		OrderBy("starts_at", "class_id")
}

func (q queries) eventsOn(day model.Day) sq.SelectBuilder {
	date := day.String()
	return q.sb.Select(eventColumns...).From("events").
		Where(sq.LtOrEq{"starts_on": date}).
		Where(sq.GtOrEq{"ends_on": date}).
		OrderBy("starts_on", "id")
}

func (q queries) findExisting(e model.ExistingQuery) sq.SelectBuilder {
	b := q.sb.Select(recordColumns...).From("attendance_records").
		Where(sq.Eq{"person_id": e.PersonID}).
		Where(sq.GtOrEq{"check_in_at": e.From}).
		Where(sq.Lt{"check_in_at": e.To})
	switch e.Context.Kind {
	case model.ContextClassSession:
		b = b.Where(sq.Eq{"class_id": e.Context.ClassID})
	case model.ContextEvent:
		b = b.Where(sq.Eq{"event_id": e.Context.EventID})
	}
	return b.OrderBy("check_in_at DESC").Limit(1)
}

func (q queries) insert(rec model.AttendanceRecord) sq.InsertBuilder {
	return q.sb.Insert("attendance_records").
		Columns(
			"id", "person_id", "person_name", "class_id", "event_id", "context_key",
			"check_in_at", "check_in_day", "method", "note", "label", "payload", "station_id",
		).
		Values(
			rec.ID, rec.PersonID, rec.PersonName, rec.ClassID, rec.EventID, rec.Context().Key(),
			rec.CheckInAt, model.DayOf(rec.CheckInAt, q.loc).String(), string(rec.Method),
			rec.Note, rec.Label, rec.Payload, rec.StationID,
		)
}

func (q queries) listBetween(from, to time.Time, limit int) sq.SelectBuilder {
	b := q.sb.Select(recordColumns...).From("attendance_records").
		Where(sq.GtOrEq{"check_in_at": from}).
		Where(sq.Lt{"check_in_at": to}).
		OrderBy("check_in_at DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return b
}
