package cache

import "time"

// Default cache configuration constants.
const (
	DefaultTTL             = 300 * time.Second
	DefaultMaxEntries      = 10000
	defaultCleanupInterval = time.Minute
	defaultName            = "results"
)

type config struct {
	name            string
	ttl             time.Duration
	cleanupInterval time.Duration
	maxEntries      int
}

// Option applies a configuration option to a ResultCache.
type Option func(*config)

// WithTTL sets how long entries live.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired entries are purged.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.cleanupInterval = d
		}
	}
}

// WithMaxEntries bounds the number of entries; the oldest inserted is
// evicted first.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithName labels the cache in metrics.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}
