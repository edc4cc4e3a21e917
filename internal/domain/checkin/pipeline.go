package checkin

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/internal/domain/suppress"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// IdentityResolver maps payloads and ids to active people.
type IdentityResolver interface {
	Resolve(ctx context.Context, payload string) (model.Person, error)
	Lookup(ctx context.Context, id int64) (model.Person, error)
}

// ContextResolver returns the context a person's check-in belongs to.
type ContextResolver interface {
	Resolve(ctx context.Context, person model.Person) (model.ResolvedContext, error)
}

// Guard rejects check-ins whose uniqueness key is taken.
type Guard interface {
	Check(ctx context.Context, personID int64, actx model.AttendanceContext, now time.Time) error
}

// Deps are the pipeline's collaborators. Cache and Notifier are optional.
type Deps struct {
	Cache     suppress.Cache
	Identity  IdentityResolver
	Contexts  ContextResolver
	Guard     Guard
	Committer *Committer
	Notifier  notify.Notifier
}

// Pipeline is the scan and manual check-in flow of one station.
type Pipeline struct {
	Deps
	clock     clock.Clock
	loc       *time.Location
	stationID string
	log       logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock injects the clock.
func WithClock(clk clock.Clock) Option {
	return func(p *Pipeline) {
		if clk != nil {
			p.clock = clk
		}
	}
}

// WithLocation sets the zone used in operator messages and day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithStation sets the station id stamped on outcomes.
func WithStation(id string) Option {
	return func(p *Pipeline) { p.stationID = id }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPipeline wires the collaborators.
func NewPipeline(deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		Deps:  deps,
		clock: clock.New(),
		loc:   time.Local,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleScan processes one candidate. It returns false, and notifies nobody,
// when the payload is suppressed locally.
func (p *Pipeline) HandleScan(ctx context.Context, cand model.CandidateScan) (notify.Outcome, bool) {
	if p.Cache != nil && p.Cache.IsSuppressed(ctx, cand.Payload) {
		metrics.RecordSuppressed()
		p.log.Debug(ctx, "candidate suppressed", logger.String("payload", cand.Payload))
		return notify.Outcome{}, false
	}

	start := time.Now()
	person, err := p.Identity.Resolve(ctx, cand.Payload)
	if err != nil {
		return p.finish(ctx, "scan", err, nil, nil, "", cand.Payload, start), true
	}
	o := p.run(ctx, "scan", person, model.MethodScannedCode, "", cand.Payload, start)
	return o, true
}

// CheckInPerson records a manual check-in. It bypasses the coalescer and the
// suppression cache but not the uniqueness guard.
func (p *Pipeline) CheckInPerson(ctx context.Context, personID int64, note string) notify.Outcome {
	start := time.Now()
	person, err := p.Identity.Lookup(ctx, personID)
	if err != nil {
		return p.finish(ctx, "manual", err, nil, nil, "", "", start)
	}
	return p.run(ctx, "manual", person, model.MethodManual, note, "", start)
}

func (p *Pipeline) run(ctx context.Context, path string, person model.Person, method model.VerificationMethod, note, payload string, start time.Time) notify.Outcome {
	rc, err := p.Contexts.Resolve(ctx, person)
	if err != nil {
		return p.finish(ctx, path, err, &person, nil, "", payload, start)
	}
	if err := p.Guard.Check(ctx, person.ID, rc.Context, p.clock.Now()); err != nil {
		return p.finish(ctx, path, err, &person, nil, rc.Label, payload, start)
	}
	rec, err := p.Committer.Commit(ctx, Request{
		Person:  person,
		Context: rc,
		Method:  method,
		Note:    note,
		Payload: payload,
	})
	if err != nil {
		return p.finish(ctx, path, err, &person, nil, rc.Label, payload, start)
	}
	return p.finish(ctx, path, nil, &person, &rec, rc.Label, payload, start)
}

// finish builds, logs and publishes the single outcome of an attempt.
func (p *Pipeline) finish(ctx context.Context, path string, err error, person *model.Person, rec *model.AttendanceRecord, label, payload string, start time.Time) notify.Outcome {
	o := outcomeFor(err, person, rec, label, payload, p.stationID, p.clock.Now())
	o.Message = message(o, p.loc)

	metrics.RecordOutcome(string(o.Kind), path)
	metrics.RecordPipelineLatency(metrics.Milliseconds(time.Since(start)))

	fields := []logger.Field{
		logger.String("kind", string(o.Kind)),
		logger.String("path", path),
		logger.String("message", o.Message),
	}
	if person != nil {
		fields = append(fields, logger.Int64("personID", person.ID))
	}
	switch o.Category {
	case notify.CategoryError:
		if err != nil {
			fields = append(fields, logger.Error(err))
		}
		p.log.Warn(ctx, "check-in failed", fields...)
	case notify.CategoryInfo:
		p.log.Debug(ctx, "check-in rejected", fields...)
	default:
		p.log.Info(ctx, "check-in committed", fields...)
	}

	if p.Notifier != nil {
		if nerr := p.Notifier.Notify(ctx, o); nerr != nil {
			p.log.Warn(ctx, "outcome delivery failed", logger.String("kind", string(o.Kind)), logger.Error(nerr))
		}
	}
	return o
}
