package checkin_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/adapters/repository/memory"
	"github.com/okian/rollcall/internal/domain/checkin"
	"github.com/okian/rollcall/internal/domain/guard"
	"github.com/okian/rollcall/internal/domain/identity"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/internal/domain/roster"
	"github.com/okian/rollcall/internal/domain/selection"
	"github.com/okian/rollcall/internal/domain/suppress"
	. "github.com/smartystreets/goconvey/convey"
)

// Monday 2024-03-04 09:00 UTC.
var start = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type station struct {
	clk      *clock.Mock
	store    *memory.Store
	cache    suppress.Cache
	roster   *roster.Roster
	selector *selection.Selector
	pipeline *checkin.Pipeline
	mu       sync.Mutex
	outcomes []notify.Outcome
}

func (s *station) notified() []notify.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Outcome(nil), s.outcomes...)
}

func seededStore() *memory.Store {
	store := memory.New(memory.WithLocation(time.UTC))
	store.AddPerson(model.Person{ID: 42, Name: "Ana Costa", Badge: "B-42", Role: model.RoleStudent, Active: true})
	store.AddPerson(model.Person{ID: 7, Name: "Rui Lopes", Role: model.RoleMember, Active: true})
	store.AddPerson(model.Person{ID: 9, Name: "Old Timer", Role: model.RoleMember, Active: false})
	store.AddSession(model.ClassSession{ClassID: 5, Weekday: time.Monday, Subject: "Algebra", ClassName: "Group A"})
	store.AddEvent(model.Event{ID: 3, Title: "Open Day", StartsOn: start})
	return store
}

func newStation(store *memory.Store, clk *clock.Mock) *station {
	s := &station{clk: clk, store: store}
	s.cache = suppress.NewMemory(suppress.WithClock(clk))
	s.roster = roster.New(time.UTC, clk.Now())
	s.selector = selection.New(store, selection.WithClock(clk), selection.WithLocation(time.UTC))
	committer := checkin.NewCommitter(store, s.roster, s.cache,
		checkin.WithCommitClock(clk), checkin.WithCommitLocation(time.UTC), checkin.WithStationID("front"))
	s.pipeline = checkin.NewPipeline(checkin.Deps{
		Cache:     s.cache,
		Identity:  identity.NewResolver(store),
		Contexts:  s.selector,
		Guard:     guard.New(store, s.roster, time.UTC, nil),
		Committer: committer,
		Notifier: notify.NotifierFunc(func(_ context.Context, o notify.Outcome) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.outcomes = append(s.outcomes, o)
			return nil
		}),
	}, checkin.WithClock(clk), checkin.WithLocation(time.UTC), checkin.WithStation("front"))
	return s
}

func scanOf(payload string, at time.Time) model.CandidateScan {
	return model.CandidateScan{Payload: payload, CapturedAt: at}
}

func TestCheckInScenario(t *testing.T) {
	Convey("Given a station on Monday with Ana, a student, and no selection", t, func() {
		ctx := context.Background()
		clk := clock.NewMock()
		clk.Set(start)
		st := newStation(seededStore(), clk)

		Convey("When Ana scans with no context selected", func() {
			o, handled := st.pipeline.HandleScan(ctx, scanOf("PERSON_42", clk.Now()))

			Convey("Then she is told a context is required and nothing is written", func() {
				So(handled, ShouldBeTrue)
				So(o.Kind, ShouldEqual, notify.KindContextRequired)
				So(o.Category, ShouldEqual, notify.CategoryError)
				So(o.Message, ShouldContainSubstring, "Ana Costa")
				So(st.store.Len(), ShouldEqual, 0)
				So(st.cache.IsSuppressed(ctx, "PERSON_42"), ShouldBeFalse)
			})

			Convey("And the operator then selects the session and she rescans", func() {
				_, err := st.selector.SelectSession(ctx, 5)
				So(err, ShouldBeNil)
				clk.Add(2 * time.Second)
				o, _ := st.pipeline.HandleScan(ctx, scanOf("PERSON_42", clk.Now()))

				Convey("Then the check-in is committed to the session", func() {
					So(o.Kind, ShouldEqual, notify.KindCommitted)
					So(o.Category, ShouldEqual, notify.CategorySuccess)
					So(o.Message, ShouldEqual, "Ana Costa checked in to Algebra – Group A")
					So(o.Record.Method, ShouldEqual, model.MethodScannedCode)
					So(*o.Record.ClassID, ShouldEqual, int64(5))
					So(o.Record.Payload, ShouldEqual, "PERSON_42")
					So(o.Record.StationID, ShouldEqual, "front")
					So(st.roster.Size(), ShouldEqual, 1)
					So(st.cache.IsSuppressed(ctx, "PERSON_42"), ShouldBeTrue)
				})

				Convey("Then a rescan ten seconds later is dropped silently", func() {
					before := len(st.notified())
					clk.Add(10 * time.Second)
					_, handled := st.pipeline.HandleScan(ctx, scanOf("PERSON_42", clk.Now()))
					So(handled, ShouldBeFalse)
					So(st.notified(), ShouldHaveLength, before)
				})

				Convey("Then a rescan after the TTL is a duplicate with the original time", func() {
					committedAt := clk.Now()
					clk.Add(40 * time.Second)
					o, handled := st.pipeline.HandleScan(ctx, scanOf("PERSON_42", clk.Now()))
					So(handled, ShouldBeTrue)
					So(o.Kind, ShouldEqual, notify.KindDuplicate)
					So(o.Category, ShouldEqual, notify.CategoryInfo)
					So(o.Existing.CheckInAt, ShouldEqual, committedAt)
					So(o.Message, ShouldContainSubstring, "already checked in at 09:00")
					So(st.store.Len(), ShouldEqual, 1)
				})

				Convey("Then scanning her badge instead is still a duplicate", func() {
					clk.Add(time.Minute)
					o, _ := st.pipeline.HandleScan(ctx, scanOf("B-42", clk.Now()))
					So(o.Kind, ShouldEqual, notify.KindDuplicate)
				})
			})
		})
	})
}

func TestIdentityOutcomes(t *testing.T) {
	Convey("Given a station", t, func() {
		ctx := context.Background()
		clk := clock.NewMock()
		clk.Set(start)
		st := newStation(seededStore(), clk)

		Convey("When an unknown badge is scanned", func() {
			o, _ := st.pipeline.HandleScan(ctx, scanOf("B-999", clk.Now()))
			So(o.Kind, ShouldEqual, notify.KindPersonNotFound)
			So(o.Category, ShouldEqual, notify.CategoryInfo)
			So(o.Message, ShouldContainSubstring, "B-999")
		})

		Convey("When an inactive person is scanned", func() {
			o, _ := st.pipeline.HandleScan(ctx, scanOf("PERSON_9", clk.Now()))
			So(o.Kind, ShouldEqual, notify.KindPersonNotFound)
		})

		Convey("When the code is malformed", func() {
			o, _ := st.pipeline.HandleScan(ctx, scanOf("PERSON_x1", clk.Now()))
			So(o.Kind, ShouldEqual, notify.KindPayloadMalformed)
			So(o.Category, ShouldEqual, notify.CategoryError)
		})

		Convey("When a member scans without a context", func() {
			o, _ := st.pipeline.HandleScan(ctx, scanOf("PERSON_7", clk.Now()))

			Convey("Then the none context is committed", func() {
				So(o.Kind, ShouldEqual, notify.KindCommitted)
				So(o.Record.ClassID, ShouldBeNil)
				So(o.Record.EventID, ShouldBeNil)
				So(o.Message, ShouldEqual, "Rui Lopes checked in")
			})
		})

		Convey("Then every terminal state notified exactly once", func() {
			st.pipeline.HandleScan(ctx, scanOf("B-999", clk.Now()))
			st.pipeline.CheckInPerson(ctx, 7, "")
			So(st.notified(), ShouldHaveLength, 2)
		})
	})
}

func TestManualCheckIn(t *testing.T) {
	Convey("Given an event selected", t, func() {
		ctx := context.Background()
		clk := clock.NewMock()
		clk.Set(start)
		st := newStation(seededStore(), clk)
		_, err := st.selector.SelectEvent(ctx, 3)
		So(err, ShouldBeNil)

		Convey("When Ana is checked in manually and later scans", func() {
			manual := st.pipeline.CheckInPerson(ctx, 42, "arrived with parent")
			manualAt := clk.Now()
			clk.Add(5 * time.Minute)
			o, _ := st.pipeline.HandleScan(ctx, scanOf("PERSON_42", clk.Now()))

			Convey("Then the scan is a duplicate carrying the manual record", func() {
				So(manual.Kind, ShouldEqual, notify.KindCommitted)
				So(manual.Record.Method, ShouldEqual, model.MethodManual)
				So(manual.Record.Note, ShouldEqual, "arrived with parent")
				So(st.cache.IsSuppressed(ctx, "PERSON_42"), ShouldBeFalse)

				So(o.Kind, ShouldEqual, notify.KindDuplicate)
				So(o.Existing.CheckInAt, ShouldEqual, manualAt)
				So(o.Existing.Method, ShouldEqual, model.MethodManual)
			})
		})

		Convey("When an unknown id is checked in", func() {
			o := st.pipeline.CheckInPerson(ctx, 1000, "")
			So(o.Kind, ShouldEqual, notify.KindPersonNotFound)
		})
	})
}

func TestAtMostOnce(t *testing.T) {
	Convey("Given two stations sharing one store", t, func() {
		ctx := context.Background()
		clk := clock.NewMock()
		clk.Set(start)
		store := seededStore()
		a := newStation(store, clk)
		b := newStation(store, clk)

		Convey("When both check Rui in concurrently by scan and by hand", func() {
			var wg sync.WaitGroup
			results := make(chan notify.Outcome, 40)
			for i := 0; i < 10; i++ {
				wg.Add(4)
				go func() { defer wg.Done(); o, _ := a.pipeline.HandleScan(ctx, scanOf("PERSON_7", start)); results <- o }()
				go func() { defer wg.Done(); o, _ := b.pipeline.HandleScan(ctx, scanOf("PERSON_7", start)); results <- o }()
				go func() { defer wg.Done(); results <- a.pipeline.CheckInPerson(ctx, 7, "") }()
				go func() { defer wg.Done(); results <- b.pipeline.CheckInPerson(ctx, 7, "") }()
			}
			wg.Wait()
			close(results)

			Convey("Then exactly one record exists and no attempt failed", func() {
				committed := 0
				for o := range results {
					switch o.Kind {
					case notify.KindCommitted:
						committed++
					case notify.KindDuplicate, "":
					default:
						So(fmt.Sprintf("unexpected outcome %s", o.Kind), ShouldBeEmpty)
					}
				}
				So(committed, ShouldEqual, 1)
				So(store.Len(), ShouldEqual, 1)
			})
		})
	})
}

type failingStore struct {
	*memory.Store
	insertErr error
}

func (f *failingStore) Insert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	if f.insertErr != nil {
		return model.AttendanceRecord{}, f.insertErr
	}
	return f.Store.Insert(ctx, rec)
}

func TestCommitter(t *testing.T) {
	Convey("Given a committer over a failing store", t, func() {
		ctx := context.Background()
		clk := clock.NewMock()
		clk.Set(start)
		store := &failingStore{Store: seededStore(), insertErr: errors.New("disk full")}
		r := roster.New(time.UTC, start)
		cache := suppress.NewMemory(suppress.WithClock(clk))
		c := checkin.NewCommitter(store, r, cache, checkin.WithCommitClock(clk), checkin.WithCommitLocation(time.UTC))
		req := checkin.Request{
			Person:  model.Person{ID: 7, Name: "Rui Lopes"},
			Context: model.ResolvedContext{Context: model.NoContext()},
			Method:  model.MethodScannedCode,
			Payload: "PERSON_7",
		}

		Convey("When the insert fails", func() {
			_, err := c.Commit(ctx, req)

			Convey("Then a retryable error is returned and no local state changes", func() {
				var pe *model.PersistenceError
				So(errors.As(err, &pe), ShouldBeTrue)
				So(pe.Retryable, ShouldBeTrue)
				So(r.Size(), ShouldEqual, 0)
				So(cache.IsSuppressed(ctx, "PERSON_7"), ShouldBeFalse)
			})
		})

		Convey("When the insert hits the unique constraint", func() {
			store.insertErr = nil
			first, err := c.Commit(ctx, req)
			So(err, ShouldBeNil)

			clk.Add(time.Hour)
			_, err = c.Commit(ctx, req)

			Convey("Then the winning record is returned as a duplicate", func() {
				var dup *model.DuplicateError
				So(errors.As(err, &dup), ShouldBeTrue)
				So(dup.Existing.ID, ShouldEqual, first.ID)
				So(r.Size(), ShouldEqual, 1)
			})
		})
	})
}
