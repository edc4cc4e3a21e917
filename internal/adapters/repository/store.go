// Package repository defines the persistent store shared by all stations and
// opens one of its backends.
package repository

import (
	"context"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// Store is everything a station reads and writes. Lookups return
// model.ErrNotFound when nothing matches; Insert returns
// model.ErrUniqueViolation when (person, context, day) is already taken.
type Store interface {
	// Identity
	ByID(ctx context.Context, id int64) (model.Person, error)
	ByCodeOrBadge(ctx context.Context, token string) (model.Person, error)
	Search(ctx context.Context, term string, limit int) ([]model.Person, error)

	// Schedule
	SessionsOn(ctx context.Context, weekday time.Weekday) ([]model.ClassSession, error)
	EventsOn(ctx context.Context, day model.Day) ([]model.Event, error)

	// Attendance
	FindExisting(ctx context.Context, q model.ExistingQuery) (model.AttendanceRecord, error)
	Insert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)
	ListBetween(ctx context.Context, from, to time.Time, limit int) ([]model.AttendanceRecord, error)

	Ping(ctx context.Context) error
	Close()
}
