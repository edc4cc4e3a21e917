package model

import "time"

// Day is a calendar day in a reference time zone, represented by its local midnight.
type Day struct {
	time.Time
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Day{Time: time.Date(y, m, d, 0, 0, 0, 0, loc)}
}

// DateIn keeps the calendar date of t as written and places it in loc.
// Use it for DATE values, which carry no meaningful zone.
func DateIn(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return Day{Time: time.Date(y, m, d, 0, 0, 0, 0, loc)}
}

// Start is the first instant of the day.
func (d Day) Start() time.Time { return d.Time }

// End is the first instant of the next day (exclusive bound).
func (d Day) End() time.Time { return d.Time.AddDate(0, 0, 1) }

// Contains reports whether t falls within [Start, End).
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start()) && t.Before(d.End())
}

// Equal compares calendar days.
func (d Day) Equal(o Day) bool {
	return d.Time.Equal(o.Time)
}

// Before reports whether d is an earlier day than o.
func (d Day) Before(o Day) bool { return d.Time.Before(o.Time) }

// After reports whether d is a later day than o.
func (d Day) After(o Day) bool { return d.Time.After(o.Time) }

// String formats the day as YYYY-MM-DD.
func (d Day) String() string { return d.Format(time.DateOnly) }
