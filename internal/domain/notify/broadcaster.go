package notify

import (
	"context"
	"sync"

	"github.com/okian/rollcall/pkg/metrics"
)

// Broadcaster fans outcomes out to in-process subscribers. A subscriber whose
// buffer is full misses the outcome; Notify never blocks.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan Outcome
	nextID int
	closed bool
}

// NewBroadcaster creates a Broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Outcome)}
}

// Subscribe registers a subscriber with the given buffer. The returned cancel
// function unregisters it and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Outcome, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Outcome, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Notify delivers o to every subscriber with room.
func (b *Broadcaster) Notify(_ context.Context, o Outcome) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- o:
		default:
			metrics.RecordNotifyDropped()
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.closed = true
}
