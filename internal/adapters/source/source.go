// Package source provides decode sources: lazy, unbounded streams of decoded
// scan payloads consumed by a station's coalescer.
package source

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/metrics"
)

const defaultBufferSize = 256

// Source yields decoded payloads until it is closed. The returned channel is
// closed when the source ends.
type Source interface {
	Payloads() <-chan model.ScanPayload
	Close() error
}

// Pusher accepts payloads from an external producer.
type Pusher interface {
	Push(ctx context.Context, p model.ScanPayload) error
}

// PushSource is a Source fed by Push calls, e.g. an HTTP handler.
type PushSource struct {
	ch    chan model.ScanPayload
	done  chan struct{}
	once  sync.Once
	clock clock.Clock

	mu     sync.RWMutex
	closed bool
}

// NewPush creates a push source with the given buffer. Push blocks while the
// buffer is full.
func NewPush(buffer int, opts ...Option) *PushSource {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	s := settings{clock: clock.New()}
	for _, opt := range opts {
		opt(&s)
	}
	return &PushSource{
		ch:    make(chan model.ScanPayload, buffer),
		done:  make(chan struct{}),
		clock: s.clock,
	}
}

// Payloads implements Source.
func (s *PushSource) Payloads() <-chan model.ScanPayload { return s.ch }

// Push hands a payload to the consumer. A zero CapturedAt is stamped with the
// current time.
func (s *PushSource) Push(ctx context.Context, p model.ScanPayload) error {
	if p.CapturedAt.IsZero() {
		p.CapturedAt = s.clock.Now()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.ch <- p:
		metrics.RecordScanReceived()
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream. Blocked pushes return ErrClosed.
func (s *PushSource) Close() error {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}
