// Package worker runs candidate scans through the check-in pipeline on a pool
// of shard workers. Candidates with the same payload always land on the same
// shard, so they are processed one at a time and in queue order.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

const shardBuffer = 64

// Handler processes one candidate to its terminal outcome.
type Handler interface {
	HandleScan(ctx context.Context, c model.CandidateScan) (notify.Outcome, bool)
}

// Queue defines how the pool receives candidates.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.CandidateScan
}

// ShardFor returns the shard index of payload among n shards.
func ShardFor(payload string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(payload) % uint64(n))
}

// InMemoryWorker consumes one shard.
type InMemoryWorker struct {
	in      chan model.CandidateScan
	handler Handler
	name    string
	done    chan struct{}
	logger  logger.Logger
}

// NewInMemoryWorker creates a shard worker reading from in.
func NewInMemoryWorker(in chan model.CandidateScan, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		in:      in,
		handler: handler,
		name:    "worker",
		done:    make(chan struct{}),
		logger:  logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run processes candidates until the shard channel is closed. ctx is only
// used for values; cancelling it does not abort an in-flight check-in.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	ctx = context.WithoutCancel(ctx)
	for c := range w.in {
		w.process(ctx, c)
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, c model.CandidateScan) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(metrics.Milliseconds(time.Since(start)))
		if r := recover(); r != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "candidate handler panicked",
				logger.String("payload", c.Payload),
				logger.Any("panic", r),
			)
		}
	}()

	o, handled := w.handler.HandleScan(ctx, c)
	if handled && o.Kind == notify.KindPersistenceError {
		metrics.RecordWorkerError()
	}
}

// Pool dispatches candidates from a queue to shard workers.
type Pool struct {
	queue   Queue
	workers []*InMemoryWorker
	shards  []chan model.CandidateScan

	dispatched chan struct{}
	stop       chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once

	logger logger.Logger
}

// NewPool creates a pool of shardCount workers. A non-positive count uses
// the number of CPUs.
func NewPool(shardCount int, q Queue, handler Handler, opts ...Option) *Pool {
	if shardCount < 1 {
		shardCount = runtime.NumCPU()
	}
	p := &Pool{
		queue:      q,
		workers:    make([]*InMemoryWorker, shardCount),
		shards:     make([]chan model.CandidateScan, shardCount),
		dispatched: make(chan struct{}),
		stop:       make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.shards[i] = make(chan model.CandidateScan, shardBuffer)
		p.workers[i] = NewInMemoryWorker(p.shards[i], handler,
			append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)...)
	}
	metrics.UpdateWorkerCount(shardCount)
	return p
}

// Size returns the number of shards.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches the dispatcher and the shard workers.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		go p.dispatch(ctx)
	})
}

func (p *Pool) dispatch(ctx context.Context) {
	defer func() {
		for _, ch := range p.shards {
			close(ch)
		}
		close(p.dispatched)
	}()

	// The dispatcher keeps reading after ctx ends so queued candidates are
	// drained; Shutdown closes the queue to end the stream.
	in := p.queue.Dequeue(context.WithoutCancel(ctx))
	for {
		select {
		case c, ok := <-in:
			if !ok {
				return
			}
			select {
			case p.shards[ShardFor(c.Payload, len(p.shards))] <- c:
			case <-p.stop:
				return
			}
		case <-p.stop:
			return
		}
	}
}

// Shutdown waits for the queue to drain and every worker to finish. The
// caller closes the queue first. If ctx ends before that, dispatch stops and
// the remaining queued candidates are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	select {
	case <-p.dispatched:
	case <-ctx.Done():
		p.stopOnce.Do(func() { close(p.stop) })
		p.logger.Warn(ctx, "dispatch drain timed out")
	}
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}
