package worker_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/mq/queue"
	"github.com/okian/rollcall/internal/adapters/mq/worker"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.InitWithWriter(&bytes.Buffer{})
}

// recordingHandler records handling order per payload and flags overlapping
// calls for the same payload.
type recordingHandler struct {
	mu       sync.Mutex
	order    map[string][]time.Time
	inFlight map[string]int
	overlap  bool
	delay    time.Duration
	block    chan struct{}
	panicOn  string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		order:    make(map[string][]time.Time),
		inFlight: make(map[string]int),
	}
}

func (h *recordingHandler) HandleScan(ctx context.Context, c model.CandidateScan) (notify.Outcome, bool) {
	h.mu.Lock()
	h.inFlight[c.Payload]++
	if h.inFlight[c.Payload] > 1 {
		h.overlap = true
	}
	block := h.block
	h.mu.Unlock()

	if block != nil && c.Payload == "STUCK" {
		<-block
	}
	time.Sleep(h.delay)

	h.mu.Lock()
	h.inFlight[c.Payload]--
	h.order[c.Payload] = append(h.order[c.Payload], c.CapturedAt)
	h.mu.Unlock()

	if c.Payload == h.panicOn {
		panic("boom")
	}
	return notify.Outcome{Kind: notify.KindCommitted}, true
}

func (h *recordingHandler) handled(payload string) []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.order[payload]...)
}

func TestShardFor(t *testing.T) {
	Convey("ShardFor is stable and in range", t, func() {
		for _, p := range []string{"PERSON_1", "PERSON_2", "B-77", ""} {
			s := worker.ShardFor(p, 8)
			So(s, ShouldBeBetweenOrEqual, 0, 7)
			So(worker.ShardFor(p, 8), ShouldEqual, s)
		}
		So(worker.ShardFor("PERSON_1", 1), ShouldEqual, 0)
		So(worker.ShardFor("PERSON_1", 0), ShouldEqual, 0)
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of four shards over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(128))
		h := newRecordingHandler()
		h.delay = time.Millisecond
		pool := worker.NewPool(4, q, h)
		So(pool.Size(), ShouldEqual, 4)
		ctx := context.Background()
		pool.Start(ctx)

		Convey("When repeated payloads are enqueued and the queue closed", func() {
			base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
			payloads := []string{"PERSON_1", "PERSON_2", "PERSON_3"}
			for i := 0; i < 10; i++ {
				for _, p := range payloads {
					So(q.Enqueue(ctx, model.CandidateScan{Payload: p, CapturedAt: base.Add(time.Duration(i) * time.Second)}), ShouldBeTrue)
				}
			}
			So(q.Close(), ShouldBeNil)
			So(pool.Shutdown(ctx), ShouldBeNil)

			Convey("Then every candidate was handled, per payload in order and never concurrently", func() {
				for _, p := range payloads {
					got := h.handled(p)
					So(got, ShouldHaveLength, 10)
					for i := 1; i < len(got); i++ {
						So(got[i].After(got[i-1]), ShouldBeTrue)
					}
				}
				So(h.overlap, ShouldBeFalse)
			})
		})

		Convey("When a handler panics", func() {
			h.panicOn = "PERSON_9"
			So(q.Enqueue(ctx, model.CandidateScan{Payload: "PERSON_9"}), ShouldBeTrue)
			So(q.Enqueue(ctx, model.CandidateScan{Payload: "PERSON_9"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then the worker survives and keeps going", func() {
				So(pool.Shutdown(ctx), ShouldBeNil)
				So(h.handled("PERSON_9"), ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given a shard stuck on a hung call", t, func() {
		q := queue.NewInMemoryQueue()
		h := newRecordingHandler()
		h.block = make(chan struct{})
		pool := worker.NewPool(2, q, h)
		pool.Start(context.Background())
		So(q.Enqueue(context.Background(), model.CandidateScan{Payload: "STUCK"}), ShouldBeTrue)
		So(q.Close(), ShouldBeNil)

		Convey("Then Shutdown gives up when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			So(pool.Shutdown(ctx), ShouldNotBeNil)
			close(h.block)
		})
	})
}
