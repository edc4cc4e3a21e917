package roster_test

import (
	"testing"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/roster"
	. "github.com/smartystreets/goconvey/convey"
)

func record(personID int64, actx model.AttendanceContext, at time.Time) model.AttendanceRecord {
	rec := model.AttendanceRecord{PersonID: personID, CheckInAt: at}
	rec.SetContext(actx)
	return rec
}

func TestRoster(t *testing.T) {
	Convey("Given a roster for today", t, func() {
		now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
		today := model.DayOf(now, time.UTC)
		r := roster.New(time.UTC, now)

		Convey("When records are prepended", func() {
			r.Prepend(record(1, model.ClassContext(7), now))
			r.Prepend(record(2, model.EventContext(3), now.Add(time.Minute)))

			Convey("Then they are listed newest first", func() {
				recs := r.Records()
				So(recs, ShouldHaveLength, 2)
				So(recs[0].PersonID, ShouldEqual, 2)
				So(r.Size(), ShouldEqual, 2)
			})

			Convey("Then Find honours the context", func() {
				_, ok := r.Find(1, model.ClassContext(7), today)
				So(ok, ShouldBeTrue)
				_, ok = r.Find(1, model.ClassContext(8), today)
				So(ok, ShouldBeFalse)
				_, ok = r.Find(1, model.NoContext(), today)
				So(ok, ShouldBeTrue)
				_, ok = r.Find(3, model.NoContext(), today)
				So(ok, ShouldBeFalse)
			})

			Convey("Then a record from tomorrow rolls the roster over", func() {
				r.Prepend(record(4, model.NoContext(), now.Add(24*time.Hour)))
				So(r.Size(), ShouldEqual, 1)
				So(r.Day().String(), ShouldEqual, "2024-06-04")
			})

			Convey("Then a stale record is ignored", func() {
				r.Prepend(record(5, model.NoContext(), now.Add(-24*time.Hour)))
				So(r.Size(), ShouldEqual, 2)
			})

			Convey("Then reset empties it", func() {
				r.Reset(model.DayOf(now.Add(24*time.Hour), time.UTC))
				So(r.Size(), ShouldEqual, 0)
			})
		})

		Convey("When loading from the store", func() {
			r.Load(today, []model.AttendanceRecord{
				record(1, model.NoContext(), now),
				record(2, model.NoContext(), now.Add(time.Hour)),
				record(3, model.NoContext(), now.Add(-24*time.Hour)),
			})

			Convey("Then only today's records are kept, newest first", func() {
				recs := r.Records()
				So(recs, ShouldHaveLength, 2)
				So(recs[0].PersonID, ShouldEqual, 2)
			})
		})
	})
}
