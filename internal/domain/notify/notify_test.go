package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/notify"
	. "github.com/smartystreets/goconvey/convey"
)

func committed() notify.Outcome {
	rec := &model.AttendanceRecord{ID: "rec-1", PersonID: 1, PersonName: "Ana", CheckInAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	return notify.Outcome{
		Kind:     notify.KindCommitted,
		Category: notify.CategorySuccess,
		Person:   &model.Person{ID: 1, Name: "Ana"},
		Record:   rec,
		Message:  "Ana checked in",
		At:       rec.CheckInAt,
	}
}

func TestClassification(t *testing.T) {
	Convey("Given check-in errors", t, func() {
		So(notify.KindOf(nil), ShouldEqual, notify.KindCommitted)
		So(notify.KindOf(&model.DuplicateError{}), ShouldEqual, notify.KindDuplicate)
		So(notify.KindOf(model.ErrPersonInactive), ShouldEqual, notify.KindPersonNotFound)
		So(notify.KindOf(fmt.Errorf("x: %w", model.ErrPayloadMalformed)), ShouldEqual, notify.KindPayloadMalformed)
		So(notify.KindOf(model.ErrContextRequired), ShouldEqual, notify.KindContextRequired)
		So(notify.KindOf(&model.PersistenceError{Err: errors.New("boom")}), ShouldEqual, notify.KindPersistenceError)

		Convey("Then duplicates and unknown people are informational", func() {
			So(notify.CategoryOf(notify.KindCommitted), ShouldEqual, notify.CategorySuccess)
			So(notify.CategoryOf(notify.KindDuplicate), ShouldEqual, notify.CategoryInfo)
			So(notify.CategoryOf(notify.KindPersonNotFound), ShouldEqual, notify.CategoryInfo)
			So(notify.CategoryOf(notify.KindContextRequired), ShouldEqual, notify.CategoryError)
			So(notify.CategoryOf(notify.KindPersistenceError), ShouldEqual, notify.CategoryError)
		})
	})
}

func TestBroadcaster(t *testing.T) {
	Convey("Given a broadcaster with two subscribers", t, func() {
		ctx := context.Background()
		b := notify.NewBroadcaster()
		fast, cancelFast := b.Subscribe(4)
		slow, cancelSlow := b.Subscribe(1)
		defer cancelFast()
		defer cancelSlow()

		Convey("When two outcomes are published", func() {
			So(b.Notify(ctx, committed()), ShouldBeNil)
			So(b.Notify(ctx, committed()), ShouldBeNil)

			Convey("Then the slow subscriber misses one without blocking", func() {
				So(len(fast), ShouldEqual, 2)
				So(len(slow), ShouldEqual, 1)
			})
		})

		Convey("When a subscriber cancels", func() {
			cancelSlow()
			cancelSlow()

			Convey("Then its channel is closed and it is forgotten", func() {
				_, ok := <-slow
				So(ok, ShouldBeFalse)
				So(b.Subscribers(), ShouldEqual, 1)
			})
		})

		Convey("When the broadcaster closes", func() {
			b.Close()
			_, ok := <-fast
			So(ok, ShouldBeFalse)
			late, _ := b.Subscribe(1)
			_, ok = <-late
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMulti(t *testing.T) {
	Convey("Given a fan-out with a failing notifier", t, func() {
		var got []notify.Kind
		ok := notify.NotifierFunc(func(_ context.Context, o notify.Outcome) error {
			got = append(got, o.Kind)
			return nil
		})
		failing := notify.NotifierFunc(func(context.Context, notify.Outcome) error {
			return errors.New("sink down")
		})
		m := notify.Multi{failing, nil, ok}

		err := m.Notify(context.Background(), committed())

		Convey("Then every notifier still receives the outcome", func() {
			So(err, ShouldNotBeNil)
			So(got, ShouldResemble, []notify.Kind{notify.KindCommitted})
		})
	})
}

func TestRedisPublisher(t *testing.T) {
	Convey("Given a Redis publisher", t, func() {
		ctx := context.Background()
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		pub := notify.NewRedisPublisher(client, "front-desk")

		sub := client.Subscribe(ctx, pub.Channel())
		defer sub.Close()
		_, err := sub.Receive(ctx)
		So(err, ShouldBeNil)

		Convey("When an outcome is published", func() {
			So(pub.Notify(ctx, committed()), ShouldBeNil)

			Convey("Then subscribers receive it as JSON", func() {
				msg, err := sub.ReceiveMessage(ctx)
				So(err, ShouldBeNil)
				So(msg.Channel, ShouldEqual, "rollcall:outcomes:front-desk")

				var o notify.Outcome
				So(json.Unmarshal([]byte(msg.Payload), &o), ShouldBeNil)
				So(o.Kind, ShouldEqual, notify.KindCommitted)
				So(o.Record.ID, ShouldEqual, "rec-1")
			})
		})
	})
}

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher(t *testing.T) {
	Convey("Given an AMQP publisher with the default kinds", t, func() {
		ctx := context.Background()
		ch := &fakeChannel{}
		pub := notify.NewAMQPPublisher(ch, "attendance")

		Convey("When a commit and a duplicate are notified", func() {
			So(pub.Notify(ctx, committed()), ShouldBeNil)
			So(pub.Notify(ctx, notify.Outcome{Kind: notify.KindDuplicate}), ShouldBeNil)

			Convey("Then only the commit is published, persistently", func() {
				So(ch.published, ShouldHaveLength, 1)
				So(ch.keys[0], ShouldEqual, "attendance.committed")
				So(ch.published[0].DeliveryMode, ShouldEqual, amqp.Persistent)
				So(ch.published[0].MessageId, ShouldEqual, "rec-1")
				So(ch.published[0].ContentType, ShouldEqual, "application/json")
			})
		})

		Convey("When more kinds are enabled", func() {
			pub := notify.NewAMQPPublisher(ch, "attendance", notify.WithKinds(notify.KindDuplicate))
			So(pub.Notify(ctx, notify.Outcome{Kind: notify.KindDuplicate}), ShouldBeNil)
			So(ch.keys, ShouldResemble, []string{"attendance.duplicate"})
		})

		Convey("When the channel fails", func() {
			ch.err = errors.New("channel closed")
			So(pub.Notify(ctx, committed()), ShouldNotBeNil)
		})

		Convey("Then closing closes the channel", func() {
			So(pub.Close(), ShouldBeNil)
			So(ch.closed, ShouldBeTrue)
		})
	})
}
