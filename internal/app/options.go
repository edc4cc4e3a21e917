package service

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/rollcall/internal/adapters/source"
	"github.com/okian/rollcall/internal/domain/notify"
	"github.com/okian/rollcall/internal/domain/suppress"
	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the Station.
type Option func(*Station)

// WithStationID names the station on records and outcomes.
func WithStationID(id string) Option {
	return func(s *Station) {
		if id != "" {
			s.stationID = id
		}
	}
}

// WithLocation sets the time zone that defines the attendance day.
func WithLocation(loc *time.Location) Option {
	return func(s *Station) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock injects the clock shared by every component.
func WithClock(clk clock.Clock) Option {
	return func(s *Station) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithCodePrefix sets the structured payload prefix.
func WithCodePrefix(prefix string) Option {
	return func(s *Station) {
		if prefix != "" {
			s.codePrefix = prefix
		}
	}
}

// WithScanWindows sets the coalescer's minimum interval and debounce window.
func WithScanWindows(minInterval, debounce time.Duration) Option {
	return func(s *Station) {
		if minInterval >= 0 {
			s.minInterval = minInterval
		}
		if debounce >= 0 {
			s.debounce = debounce
		}
	}
}

// WithQueueSize bounds the candidate queue.
func WithQueueSize(size int) Option {
	return func(s *Station) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of check-in shards.
func WithWorkerCount(count int) Option {
	return func(s *Station) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithSource replaces the default push source.
func WithSource(src source.Source) Option {
	return func(s *Station) {
		if src != nil {
			s.source = src
		}
	}
}

// WithCache replaces the default in-memory suppression cache.
func WithCache(cache suppress.Cache) Option {
	return func(s *Station) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithNotifier adds an outcome sink next to the in-process broadcaster.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Station) {
		if n != nil {
			s.sinks = append(s.sinks, n)
		}
	}
}

// WithRequiredRoles lists the roles that need a class session or event.
func WithRequiredRoles(roles ...string) Option {
	return func(s *Station) {
		if len(roles) > 0 {
			s.requiredRoles = roles
		}
	}
}

// WithFixedContext pins the station to a class (classID > 0) or an event
// (eventID > 0).
func WithFixedContext(classID, eventID int64) Option {
	return func(s *Station) {
		s.fixedClassID = classID
		s.fixedEventID = eventID
	}
}

// WithLogger sets a custom logger for the station.
func WithLogger(l logger.Logger) Option {
	return func(s *Station) {
		if l != nil {
			s.logger = l
		}
	}
}
