// Package service provides the Station: one running check-in client that
// owns a coalescer, suppression cache, roster and context selection, wired to
// the shared attendance store. It implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron"

	"github.com/okian/rollcall/internal/adapters/mq/queue"
	"github.com/okian/rollcall/internal/adapters/mq/worker"
	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/adapters/source"
	"github.com/okian/rollcall/internal/domain/checkin"
	"github.com/okian/rollcall/internal/domain/coalesce"
	"github.com/okian/rollcall/internal/domain/guard"
	"github.com/okian/rollcall/internal/domain/identity"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/internal/domain/roster"
	"github.com/okian/rollcall/internal/domain/selection"
	"github.com/okian/rollcall/internal/domain/suppress"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

const (
	defaultQueueSize = 1024
	// rosterLoadLimit caps the records loaded into the roster at start.
	rosterLoadLimit = 5000
	housekeeping    = "@every 10s"
)

// Station is one running check-in client.
type Station struct {
	mu sync.RWMutex

	// Configuration
	stationID     string
	loc           *time.Location
	clock         clock.Clock
	codePrefix    string
	minInterval   time.Duration
	debounce      time.Duration
	queueSize     int
	workerCount   int
	requiredRoles []string
	fixedClassID  int64
	fixedEventID  int64

	// Core components
	store       repository.Store
	source      source.Source
	cache       suppress.Cache
	sinks       notify.Multi
	broadcaster *notify.Broadcaster
	identity    *identity.Resolver
	selector    *selection.Selector
	roster      *roster.Roster
	coalescer   *coalesce.Coalescer
	pipeline    *checkin.Pipeline

	// Runtime, rebuilt on each Start
	queue        *queue.InMemoryQueue
	pool         *worker.Pool
	cron         *cron.Cron
	cancel       context.CancelFunc
	coalesceDone chan struct{}
	started      bool
	stopped      bool

	logger logger.Logger
}

// New constructs a Station over store.
func New(store repository.Store, opts ...Option) *Station {
	s := &Station{
		stationID:   "station-1",
		loc:         time.Local,
		clock:       clock.New(),
		codePrefix:  identity.DefaultPrefix,
		minInterval: coalesce.DefaultMinInterval,
		debounce:    coalesce.DefaultDebounceWindow,
		queueSize:   defaultQueueSize,
		workerCount: runtime.NumCPU(),
		store:       store,
		broadcaster: notify.NewBroadcaster(),
		logger:      logger.Get().Named("station"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.source == nil {
		s.source = source.NewPush(s.queueSize, source.WithClock(s.clock))
	}
	if s.cache == nil {
		s.cache = suppress.NewMemory(suppress.WithClock(s.clock), suppress.WithLogger(s.logger.Named("suppress")))
	}

	s.identity = identity.NewResolver(store,
		identity.WithPrefix(s.codePrefix),
		identity.WithLogger(s.logger.Named("identity")),
	)

	selOpts := []selection.Option{
		selection.WithLocation(s.loc),
		selection.WithClock(s.clock),
		selection.WithLogger(s.logger.Named("selection")),
	}
	if len(s.requiredRoles) > 0 {
		selOpts = append(selOpts, selection.WithRequiredRoles(s.requiredRoles...))
	}
	switch {
	case s.fixedClassID > 0:
		selOpts = append(selOpts, selection.WithFixedClass(s.fixedClassID))
	case s.fixedEventID > 0:
		selOpts = append(selOpts, selection.WithFixedEvent(s.fixedEventID))
	}
	s.selector = selection.New(store, selOpts...)

	s.roster = roster.New(s.loc, s.clock.Now())
	s.coalescer = coalesce.New(
		coalesce.WithMinInterval(s.minInterval),
		coalesce.WithDebounceWindow(s.debounce),
		coalesce.WithClock(s.clock),
		coalesce.WithLogger(s.logger.Named("coalesce")),
	)

	committer := checkin.NewCommitter(store, s.roster, s.cache,
		checkin.WithCommitClock(s.clock),
		checkin.WithCommitLocation(s.loc),
		checkin.WithStationID(s.stationID),
		checkin.WithCommitLogger(s.logger.Named("committer")),
	)
	s.pipeline = checkin.NewPipeline(checkin.Deps{
		Cache:     s.cache,
		Identity:  s.identity,
		Contexts:  s.selector,
		Guard:     guard.New(store, s.roster, s.loc, s.logger.Named("guard")),
		Committer: committer,
		Notifier:  append(notify.Multi{s.broadcaster}, s.sinks...),
	},
		checkin.WithClock(s.clock),
		checkin.WithLocation(s.loc),
		checkin.WithStation(s.stationID),
		checkin.WithLogger(s.logger.Named("pipeline")),
	)
	return s
}

// Start loads today's roster and launches the coalescer, the worker pool and
// the scheduled jobs. A stopped Station cannot be started again.
func (s *Station) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}
	s.logger.Info(ctx, "starting station...", logger.String("station", s.stationID))

	if err := s.loadRoster(ctx); err != nil {
		return err
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.pipeline, worker.WithLogger(s.logger.Named("worker")))
	s.pool.Start(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.coalesceDone = make(chan struct{})
	go s.runCoalescer(runCtx, s.queue, s.coalesceDone)

	s.cron = cron.NewWithLocation(s.loc)
	if err := s.cron.AddFunc("@midnight", s.rollover); err != nil {
		cancel()
		return fmt.Errorf("schedule day rollover: %w", err)
	}
	if err := s.cron.AddFunc(housekeeping, s.housekeep); err != nil {
		cancel()
		return fmt.Errorf("schedule housekeeping: %w", err)
	}
	s.cron.Start()

	s.started = true
	s.logger.Info(ctx, "station started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("roster", s.roster.Size()),
	)
	return nil
}

func (s *Station) loadRoster(ctx context.Context) error {
	today := model.DayOf(s.clock.Now(), s.loc)
	records, err := s.store.ListBetween(ctx, today.Start(), today.End(), rosterLoadLimit)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	s.roster.Load(today, records)
	metrics.UpdateRosterSize(s.roster.Size())
	return nil
}

func (s *Station) runCoalescer(ctx context.Context, q queue.Queue, done chan struct{}) {
	defer close(done)
	emit := func(c model.CandidateScan) {
		metrics.RecordCandidate()
		if !q.Enqueue(ctx, c) {
			metrics.RecordScanDropped()
			s.logger.Warn(ctx, "candidate dropped, queue full", logger.String("payload", c.Payload))
		}
	}
	ack := func(model.ScanPayload) { metrics.RecordScanAcknowledged() }

	err := s.coalescer.Run(ctx, s.source.Payloads(), emit, ack)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error(ctx, "coalescer stopped", logger.Error(err))
	}
}

// rollover starts a new attendance day: the selection lapses and the roster
// is emptied.
func (s *Station) rollover() {
	ctx := context.Background()
	day := model.DayOf(s.clock.Now(), s.loc)
	s.selector.ClearSelection()
	s.roster.Reset(day)
	metrics.UpdateRosterSize(0)
	s.logger.Info(ctx, "attendance day rolled over", logger.String("day", day.String()))
}

func (s *Station) housekeep() {
	ctx := context.Background()
	if n := s.cache.Sweep(ctx); n > 0 {
		s.logger.Debug(ctx, "suppression entries expired", logger.Int("count", n))
	}
	metrics.UpdateSuppressionSize(s.cache.Size())
	metrics.UpdateRosterSize(s.roster.Size())
	if s.queue != nil {
		s.queue.Len()
	}
}

// Stop closes the source, halts the coalescer, then drains the queue.
// In-flight check-ins run to completion unless ctx ends first.
func (s *Station) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping station...")

	if err := s.source.Close(); err != nil {
		s.logger.Warn(ctx, "error closing source", logger.Error(err))
	}
	s.cancel()
	<-s.coalesceDone

	s.cron.Stop()
	_ = s.queue.Close()
	err := s.pool.Shutdown(ctx)
	s.broadcaster.Close()

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "station stopped")
	return err
}

// Running reports whether Start has been called without a matching Stop.
func (s *Station) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// SubmitScan hands a decoded payload to the station. The returned ack means
// the payload was received, not that anything was recorded.
func (s *Station) SubmitScan(ctx context.Context, req types.ScanRequest) (types.ScanAck, error) {
	pusher, ok := s.source.(source.Pusher)
	if !ok {
		return types.ScanAck{}, ErrScanInputDisabled
	}
	if !s.Running() {
		return types.ScanAck{}, ErrNotRunning
	}
	text := strings.TrimSpace(req.Payload)
	if text == "" {
		return types.ScanAck{}, fmt.Errorf("%w: empty payload", model.ErrPayloadMalformed)
	}
	p := model.ScanPayload{Text: text}
	if req.CapturedAt != nil {
		p.CapturedAt = *req.CapturedAt
	}
	if err := pusher.Push(ctx, p); err != nil {
		if errors.Is(err, source.ErrClosed) {
			return types.ScanAck{}, ErrNotRunning
		}
		return types.ScanAck{}, err
	}
	return types.ScanAck{Acknowledged: true}, nil
}

// CheckInPerson records a manual check-in for personID.
func (s *Station) CheckInPerson(ctx context.Context, req types.CheckInRequest) notify.Outcome {
	return s.pipeline.CheckInPerson(ctx, req.PersonID, strings.TrimSpace(req.Note))
}

// Search returns up to 20 active people matching term.
func (s *Station) Search(ctx context.Context, term string) ([]model.Person, error) {
	return s.identity.Search(ctx, term)
}

// Badge renders the scannable code of an active person as PNG.
func (s *Station) Badge(ctx context.Context, personID int64, size int) ([]byte, error) {
	p, err := s.identity.Lookup(ctx, personID)
	if err != nil {
		return nil, err
	}
	return identity.BadgePNG(s.identity.Prefix(), p.ID, size)
}

// ContextState returns today's options and the current selection.
func (s *Station) ContextState(ctx context.Context) (types.ContextState, error) {
	opts, err := s.selector.Options(ctx)
	if err != nil {
		return types.ContextState{}, err
	}
	state := types.ContextState{
		Fixed:    s.selector.Fixed(),
		Sessions: opts.Sessions,
		Events:   opts.Events,
	}
	if state.Fixed {
		rc, err := s.selector.Resolve(ctx, model.Person{})
		if err == nil {
			state.Current = &rc
		}
	} else if rc, ok := s.selector.Current(); ok {
		state.Current = &rc
	}
	return state, nil
}

// SelectContext makes a class session or event of today the active context.
func (s *Station) SelectContext(ctx context.Context, sel types.ContextSelection) (model.ResolvedContext, error) {
	switch model.ContextKind(sel.Kind) {
	case model.ContextClassSession:
		return s.selector.SelectSession(ctx, sel.ID)
	case model.ContextEvent:
		return s.selector.SelectEvent(ctx, sel.ID)
	default:
		return model.ResolvedContext{}, fmt.Errorf("%w: kind %q", model.ErrInvalidContext, sel.Kind)
	}
}

// ClearContext drops the current selection.
func (s *Station) ClearContext(_ context.Context) error {
	if s.selector.Fixed() {
		return selection.ErrContextFixed
	}
	s.selector.ClearSelection()
	return nil
}

// Roster returns today's check-ins seen by this station, newest first.
func (s *Station) Roster(_ context.Context) types.RosterResponse {
	records := s.roster.Records()
	return types.RosterResponse{
		Day:     s.roster.Day().String(),
		Count:   len(records),
		Records: records,
	}
}

// Subscribe streams outcomes to the caller until cancel is called.
func (s *Station) Subscribe(buffer int) (<-chan notify.Outcome, func()) {
	return s.broadcaster.Subscribe(buffer)
}

// GetStats returns station statistics for monitoring.
func (s *Station) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs := s.coalescer.Stats()
	stats := map[string]interface{}{
		"station":         s.stationID,
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"day":             s.roster.Day().String(),
		"rosterSize":      s.roster.Size(),
		"suppressionSize": s.cache.Size(),
		"scansOffered":    cs.Offered,
		"scansAccepted":   cs.Accepted,
		"scansDropped":    cs.Dropped,
		"candidates":      cs.Emitted,
		"pending":         cs.Pending,
		"subscribers":     s.broadcaster.Subscribers(),
	}
	if rc, ok := s.selector.Current(); ok {
		stats["context"] = rc.Label
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
