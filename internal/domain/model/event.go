// Package model contains domain models passed between layers.
package model

import "time"

// Event is a dated occasion people can check in to.
// The date window is inclusive on both ends and expressed as calendar days.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartsOn    time.Time `json:"starts_on"`
	EndsOn      time.Time `json:"ends_on"`
}

// CoversDay reports whether day falls within the event's date window.
// StartsOn and EndsOn are read as calendar dates in their own location.
func (e Event) CoversDay(day Day) bool {
	start := DateIn(e.StartsOn, day.Location())
	end := start
	if !e.EndsOn.IsZero() {
		end = DateIn(e.EndsOn, day.Location())
	}
	return !day.Before(start) && !day.After(end)
}

// ClassSession is a weekly scheduled meeting of a class.
type ClassSession struct {
	ClassID   int64        `json:"class_id"`
	Weekday   time.Weekday `json:"weekday"`
	Subject   string       `json:"subject"`
	ClassName string       `json:"class_name,omitempty"`
	Professor string       `json:"professor,omitempty"`
	StartsAt  string       `json:"starts_at,omitempty"` // "HH:MM"
}

// Label is the human readable name used on records and confirmations.
func (s ClassSession) Label() string {
	if s.ClassName == "" {
		return s.Subject
	}
	return s.Subject + " – " + s.ClassName
}
