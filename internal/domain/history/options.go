package history

import "time"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithCapacity sets the per-subject window size.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithIdleTTL sets how long an untouched subject window survives Prune.
func WithIdleTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

// WithStableBand sets the mean difference below which a trend is stable.
func WithStableBand(band float64) Option {
	return func(s *Store) {
		if band >= 0 {
			s.stableBand = band
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
