package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func drain(ch <-chan model.ScanPayload) []model.ScanPayload {
	var out []model.ScanPayload
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func TestPushSource(t *testing.T) {
	Convey("Given a push source on a mock clock", t, func() {
		clk := clock.NewMock()
		clk.Set(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC))
		src := NewPush(2, WithClock(clk))
		ctx := context.Background()

		Convey("When payloads are pushed and the source closed", func() {
			captured := clk.Now().Add(-time.Second)
			So(src.Push(ctx, model.ScanPayload{Text: "PERSON_1"}), ShouldBeNil)
			So(src.Push(ctx, model.ScanPayload{Text: "PERSON_2", CapturedAt: captured}), ShouldBeNil)
			So(src.Close(), ShouldBeNil)

			Convey("Then the consumer sees them in order, stamped, until the end", func() {
				got := drain(src.Payloads())
				So(got, ShouldHaveLength, 2)
				So(got[0].CapturedAt, ShouldEqual, clk.Now())
				So(got[1].CapturedAt, ShouldEqual, captured)
			})

			Convey("Then further pushes fail and Close is idempotent", func() {
				So(src.Push(ctx, model.ScanPayload{Text: "PERSON_3"}), ShouldEqual, ErrClosed)
				So(src.Close(), ShouldBeNil)
			})
		})

		Convey("When the buffer is full", func() {
			So(src.Push(ctx, model.ScanPayload{Text: "a"}), ShouldBeNil)
			So(src.Push(ctx, model.ScanPayload{Text: "b"}), ShouldBeNil)

			Convey("Then a push honours its context", func() {
				short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
				defer cancel()
				So(errors.Is(src.Push(short, model.ScanPayload{Text: "c"}), context.DeadlineExceeded), ShouldBeTrue)
			})

			Convey("Then Close releases a blocked push", func() {
				errc := make(chan error, 1)
				go func() { errc <- src.Push(ctx, model.ScanPayload{Text: "c"}) }()
				time.Sleep(10 * time.Millisecond)
				So(src.Close(), ShouldBeNil)
				So(<-errc, ShouldEqual, ErrClosed)
			})
		})
	})
}

type closingReader struct {
	io.Reader
	closed bool
}

func (c *closingReader) Close() error {
	c.closed = true
	return nil
}

func TestLineSource(t *testing.T) {
	Convey("Given scanner output with blank lines and padding", t, func() {
		input := "PERSON_42\r\n\n  B-7  \nPERSON_42\n"
		src := NewLine(strings.NewReader(input))

		Convey("Then each non-blank trimmed line is one payload and EOF ends the stream", func() {
			got := drain(src.Payloads())
			So(got, ShouldHaveLength, 3)
			So(got[0].Text, ShouldEqual, "PERSON_42")
			So(got[1].Text, ShouldEqual, "B-7")
			So(got[2].Text, ShouldEqual, "PERSON_42")
			So(got[0].CapturedAt.IsZero(), ShouldBeFalse)
		})
	})

	Convey("Given an oversized line between valid payloads", t, func() {
		input := "PERSON_1\n" + strings.Repeat("X", maxLineLength+904) + "\nPERSON_2\nPERSON_3"
		src := NewLine(strings.NewReader(input))

		Convey("Then only the oversized line is lost", func() {
			got := drain(src.Payloads())
			So(got, ShouldHaveLength, 3)
			So(got[0].Text, ShouldEqual, "PERSON_1")
			So(got[1].Text, ShouldEqual, "PERSON_2")
			So(got[2].Text, ShouldEqual, "PERSON_3")
		})
	})

	Convey("Given input ending in an oversized line", t, func() {
		src := NewLine(strings.NewReader("PERSON_9\n" + strings.Repeat("Y", 3*maxLineLength)))

		Convey("Then the stream still ends cleanly at EOF", func() {
			got := drain(src.Payloads())
			So(got, ShouldHaveLength, 1)
			So(got[0].Text, ShouldEqual, "PERSON_9")
		})
	})

	Convey("Given a line source over a closable reader", t, func() {
		r := &closingReader{Reader: strings.NewReader("")}
		src := NewLine(r)

		Convey("When it is closed", func() {
			So(src.Close(), ShouldBeNil)
			So(src.Close(), ShouldBeNil)

			Convey("Then the reader is closed as well", func() {
				So(r.closed, ShouldBeTrue)
				drain(src.Payloads())
			})
		})
	})
}
