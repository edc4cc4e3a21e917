package memory

import "time"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLocation sets the reference zone that defines the uniqueness day.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithSeed preloads people, sessions and events. Invalid entries are skipped
// and reported by SeedErrors.
func WithSeed(seed Seed) Option {
	return func(s *Store) {
		s.seed = &seed
	}
}
