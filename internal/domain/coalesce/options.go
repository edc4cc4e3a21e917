package coalesce

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the Coalescer.
type Option func(*Coalescer)

// WithMinInterval sets the minimum spacing between accepted payloads.
func WithMinInterval(d time.Duration) Option {
	return func(c *Coalescer) {
		if d >= 0 {
			c.minInterval = d
		}
	}
}

// WithDebounceWindow sets the per-payload trailing debounce.
func WithDebounceWindow(d time.Duration) Option {
	return func(c *Coalescer) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithClock injects the clock used for deadlines.
func WithClock(clk clock.Clock) Option {
	return func(c *Coalescer) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coalescer) {
		if l != nil {
			c.log = l
		}
	}
}
