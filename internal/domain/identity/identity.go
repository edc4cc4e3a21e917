// Package identity resolves scan payloads and search terms to people.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// Search limits.
const (
	MinSearchLength  = 2
	MaxSearchResults = 20
)

// Store is the read side of the identity store. Lookups return model.ErrNotFound
// when nothing matches; inactive people are returned and filtered here.
type Store interface {
	ByID(ctx context.Context, id int64) (model.Person, error)
	ByCodeOrBadge(ctx context.Context, token string) (model.Person, error)
	// Search returns active people only, best match first.
	Search(ctx context.Context, term string, limit int) ([]model.Person, error)
}

// Resolver maps payloads to active people.
type Resolver struct {
	store  Store
	prefix string
	log    logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPrefix sets the structured code prefix.
func WithPrefix(prefix string) Option {
	return func(r *Resolver) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a resolver over store.
func NewResolver(store Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, prefix: DefaultPrefix, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prefix returns the structured code prefix in use.
func (r *Resolver) Prefix() string { return r.prefix }

// Resolve maps a scanned payload to an active person. Structured codes are looked
// up by id; anything else must match a code or badge exactly.
func (r *Resolver) Resolve(ctx context.Context, payload string) (model.Person, error) {
	parsed, err := ParsePayload(r.prefix, payload)
	if err != nil {
		return model.Person{}, err
	}
	if parsed.Structured {
		return r.Lookup(ctx, parsed.PersonID)
	}

	start := time.Now()
	p, err := r.store.ByCodeOrBadge(ctx, parsed.Token)
	metrics.RecordStoreLatency("person_by_code", metrics.Milliseconds(time.Since(start)))
	return r.active(p, err, "token "+parsed.Token)
}

// Lookup returns the active person with id.
func (r *Resolver) Lookup(ctx context.Context, id int64) (model.Person, error) {
	start := time.Now()
	p, err := r.store.ByID(ctx, id)
	metrics.RecordStoreLatency("person_by_id", metrics.Milliseconds(time.Since(start)))
	return r.active(p, err, fmt.Sprintf("id %d", id))
}

func (r *Resolver) active(p model.Person, err error, what string) (model.Person, error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return model.Person{}, fmt.Errorf("%w: %s", model.ErrPersonNotFound, what)
	case err != nil:
		return model.Person{}, &model.PersistenceError{Op: "identity lookup", Err: err, Retryable: true}
	case !p.Active:
		return model.Person{}, fmt.Errorf("%w: %s", model.ErrPersonInactive, what)
	}
	return p, nil
}

// Search returns up to MaxSearchResults active people matching term.
func (r *Resolver) Search(ctx context.Context, term string) ([]model.Person, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSearchLength {
		return nil, ErrSearchTermTooShort
	}
	people, err := r.store.Search(ctx, term, MaxSearchResults)
	if err != nil {
		return nil, &model.PersistenceError{Op: "identity search", Err: err, Retryable: true}
	}
	out := people[:0]
	for _, p := range people {
		if p.Active {
			out = append(out, p)
		}
	}
	if len(out) > MaxSearchResults {
		out = out[:MaxSearchResults]
	}
	return out, nil
}
