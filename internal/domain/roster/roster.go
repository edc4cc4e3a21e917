// Package roster holds the station's view of today's committed check-ins, newest first.
package roster

import (
	"sort"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// Roster is safe for concurrent use.
type Roster struct {
	loc *time.Location

	mu      sync.RWMutex
	day     model.Day
	records []model.AttendanceRecord
}

// New creates an empty roster for the day containing now.
func New(loc *time.Location, now time.Time) *Roster {
	if loc == nil {
		loc = time.Local
	}
	return &Roster{loc: loc, day: model.DayOf(now, loc)}
}

// Day returns the day the roster currently holds.
func (r *Roster) Day() model.Day {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.day
}

// Load replaces the contents with the records of day.
func (r *Roster) Load(day model.Day, records []model.AttendanceRecord) {
	kept := make([]model.AttendanceRecord, 0, len(records))
	for _, rec := range records {
		if day.Contains(rec.CheckInAt) {
			kept = append(kept, rec)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].CheckInAt.After(kept[j].CheckInAt) })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.day = day
	r.records = kept
}

// Prepend adds a freshly committed record. A record from a later day rolls the roster over.
func (r *Roster) Prepend(rec model.AttendanceRecord) {
	recDay := model.DayOf(rec.CheckInAt, r.loc)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case recDay.After(r.day):
		r.day = recDay
		r.records = nil
	case recDay.Before(r.day):
		return
	}
	r.records = append([]model.AttendanceRecord{rec}, r.records...)
}

// Find returns a record that collides with a check-in of personID in actx on day.
func (r *Roster) Find(personID int64, actx model.AttendanceContext, day model.Day) (model.AttendanceRecord, bool) {
	q := model.ExistingQuery{PersonID: personID, Context: actx, From: day.Start(), To: day.End()}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if q.Matches(rec) {
			return rec, true
		}
	}
	return model.AttendanceRecord{}, false
}

// Records returns a copy, newest first.
func (r *Roster) Records() []model.AttendanceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AttendanceRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Reset empties the roster and moves it to day.
func (r *Roster) Reset(day model.Day) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.day = day
	r.records = nil
}

// Size returns the number of records.
func (r *Roster) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
