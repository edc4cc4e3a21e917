package suppress

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/pkg/logger"
)

// settings are shared by the cache implementations.
type settings struct {
	ttl     time.Duration
	maxSize int
	clock   clock.Clock
	prefix  string
	log     logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		ttl:     DefaultTTL,
		maxSize: 50000,
		clock:   clock.New(),
		prefix:  "rollcall:suppress",
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a Cache.
type Option func(*settings)

// WithTTL sets how long an accepted payload stays suppressed.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxSize bounds the in-memory cache. On overflow expired entries are
// swept first; if all are live the oldest is evicted. If maxSize <= 0 the
// cache is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(s *settings) {
		s.maxSize = maxSize
	}
}

// WithClock injects the clock used for TTL checks.
func WithClock(clk clock.Clock) Option {
	return func(s *settings) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithKeyPrefix namespaces Redis keys, typically by station id.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger sets the logger used to report Redis failures.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
