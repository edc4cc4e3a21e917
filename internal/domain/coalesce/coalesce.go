// Package coalesce turns a noisy stream of decoded payloads into candidate scans.
//
// Two rules apply in order. A payload captured less than the minimum interval
// after the last accepted payload is dropped. Accepted payloads then wait out a
// trailing debounce keyed by payload text: a repeat while pending replaces the
// capture time and pushes the deadline out, so each window yields one candidate.
package coalesce

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
)

// Defaults.
const (
	DefaultMinInterval    = 800 * time.Millisecond
	DefaultDebounceWindow = 500 * time.Millisecond
)

type pending struct {
	scan     model.CandidateScan
	deadline time.Time
}

// Stats are cumulative counters since construction.
type Stats struct {
	Offered  int64
	Accepted int64
	Dropped  int64
	Emitted  int64
	Pending  int
}

// Coalescer is safe for concurrent use, although a station has a single producer.
type Coalescer struct {
	minInterval time.Duration
	debounce    time.Duration
	clock       clock.Clock
	log         logger.Logger

	mu           sync.Mutex
	lastAccepted time.Time
	hasLast      bool
	pending      map[string]*pending

	offered  atomic.Int64
	accepted atomic.Int64
	dropped  atomic.Int64
	emitted  atomic.Int64
}

// New creates a coalescer with the default intervals.
func New(opts ...Option) *Coalescer {
	c := &Coalescer{
		minInterval: DefaultMinInterval,
		debounce:    DefaultDebounceWindow,
		clock:       clock.New(),
		pending:     make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// Offer applies the interval rule to scan and schedules it on the debounce.
// now is the arrival time; a zero CapturedAt is taken to be now.
// It reports whether the payload was acknowledged. Acknowledgment is not a commit.
func (c *Coalescer) Offer(scan model.ScanPayload, now time.Time) bool {
	c.offered.Add(1)
	captured := scan.CapturedAt
	if captured.IsZero() {
		captured = now
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasLast && captured.Sub(c.lastAccepted) < c.minInterval {
		c.dropped.Add(1)
		return false
	}
	c.lastAccepted = captured
	c.hasLast = true

	deadline := now.Add(c.debounce)
	if p, ok := c.pending[scan.Text]; ok {
		p.scan.CapturedAt = captured
		p.deadline = deadline
	} else {
		c.pending[scan.Text] = &pending{
			scan:     model.CandidateScan{Payload: scan.Text, CapturedAt: captured},
			deadline: deadline,
		}
	}
	c.accepted.Add(1)
	return true
}

// Flush removes and returns pending candidates whose deadline has passed, in capture order.
func (c *Coalescer) Flush(now time.Time) []model.CandidateScan {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []model.CandidateScan
	for text, p := range c.pending {
		if !p.deadline.After(now) {
			due = append(due, p.scan)
			delete(c.pending, text)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].CapturedAt.Equal(due[j].CapturedAt) {
			return due[i].Payload < due[j].Payload
		}
		return due[i].CapturedAt.Before(due[j].CapturedAt)
	})
	c.emitted.Add(int64(len(due)))
	return due
}

// Accept is Offer followed by Flush at the same instant.
func (c *Coalescer) Accept(scan model.ScanPayload, now time.Time) []model.CandidateScan {
	c.Offer(scan, now)
	return c.Flush(now)
}

// NextDeadline returns the earliest pending deadline.
func (c *Coalescer) NextDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next time.Time
	found := false
	for _, p := range c.pending {
		if !found || p.deadline.Before(next) {
			next = p.deadline
			found = true
		}
	}
	return next, found
}

// Reset drops every pending candidate and forgets the last accepted time.
func (c *Coalescer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[string]*pending)
	c.hasLast = false
	c.lastAccepted = time.Time{}
}

// Stats returns the cumulative counters.
func (c *Coalescer) Stats() Stats {
	c.mu.Lock()
	n := len(c.pending)
	c.mu.Unlock()
	return Stats{
		Offered:  c.offered.Load(),
		Accepted: c.accepted.Load(),
		Dropped:  c.dropped.Load(),
		Emitted:  c.emitted.Load(),
		Pending:  n,
	}
}

// Run drives the coalescer until ctx ends, or until in closes and every
// pending window has elapsed. ack is called for each acknowledged payload and
// emit for each candidate whose window elapsed. Candidates still pending when
// ctx ends are dropped.
func (c *Coalescer) Run(ctx context.Context, in <-chan model.ScanPayload, emit func(model.CandidateScan), ack func(model.ScanPayload)) error {
	defer c.Reset()

	for {
		var (
			timer  *clock.Timer
			timerC <-chan time.Time
		)
		deadline, pending := c.NextDeadline()
		if pending {
			wait := deadline.Sub(c.clock.Now())
			if wait <= 0 {
				c.emitDue(emit)
				continue
			}
			timer = c.clock.Timer(wait)
			timerC = timer.C
		} else if in == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return ctx.Err()
		case scan, ok := <-in:
			stopTimer(timer)
			if !ok {
				c.log.Debug(ctx, "scan source closed", logger.Int("pending", c.Stats().Pending))
				in = nil
				continue
			}
			if c.Offer(scan, c.clock.Now()) {
				if ack != nil {
					ack(scan)
				}
			} else {
				c.log.Debug(ctx, "scan dropped by interval", logger.String("payload", scan.Text))
			}
		case <-timerC:
			c.emitDue(emit)
		}
	}
}

func (c *Coalescer) emitDue(emit func(model.CandidateScan)) {
	for _, cand := range c.Flush(c.clock.Now()) {
		if emit != nil {
			emit(cand)
		}
	}
}

func stopTimer(t *clock.Timer) {
	if t != nil {
		t.Stop()
	}
}
