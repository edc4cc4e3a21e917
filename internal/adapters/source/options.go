package source

import (
	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/pkg/logger"
)

type settings struct {
	clock clock.Clock
	log   logger.Logger
}

// Option configures a source.
type Option func(*settings)

// WithClock sets the clock used to stamp capture times.
func WithClock(clk clock.Clock) Option {
	return func(s *settings) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
