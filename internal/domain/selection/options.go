package selection

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
)

// Option configures a Selector.
type Option func(*Selector)

// WithLocation sets the reference time zone that defines "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Selector) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock injects the clock.
func WithClock(clk clock.Clock) Option {
	return func(s *Selector) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithFixedClass makes classID the authoritative context.
func WithFixedClass(classID int64) Option {
	return func(s *Selector) {
		if classID > 0 {
			fixed := model.ClassContext(classID)
			s.fixed = &fixed
		}
	}
}

// WithFixedEvent makes eventID the authoritative context.
func WithFixedEvent(eventID int64) Option {
	return func(s *Selector) {
		if eventID > 0 {
			fixed := model.EventContext(eventID)
			s.fixed = &fixed
		}
	}
}

// WithRequiredRoles replaces the roles that cannot check in without a context.
func WithRequiredRoles(roles ...string) Option {
	return func(s *Selector) {
		s.required = make(map[string]struct{}, len(roles))
		for _, r := range roles {
			if r != "" {
				s.required[r] = struct{}{}
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}
