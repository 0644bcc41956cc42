package history

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/okian/attune/internal/domain/model"
)

// Default store configuration.
const (
	DefaultCapacity   = 120
	DefaultIdleTTL    = 30 * time.Minute
	DefaultStableBand = 0.05
)

// Trend directions.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// Sample is one window entry: the fused estimate plus the per-frame
// observations needed for temporal features.
type Sample struct {
	Estimate      model.FusedEstimate
	At            time.Time
	HasFeatures   bool
	Blink         bool
	Yaw           float64
	GazeDX        float64
	GazeDY        float64
	GazeDirection string
	OnScreen      bool
}

// TrendResult compares the last k entries to the prior k.
type TrendResult struct {
	Metric    model.Metric `json:"metric"`
	Direction string       `json:"direction"`
	Recent    float64      `json:"recent_mean"`
	Prior     float64      `json:"prior_mean"`
	Delta     float64      `json:"delta"`
	Samples   int          `json:"samples"`
}

type window struct {
	mu      sync.Mutex
	ring    *Ring[Sample]
	touched time.Time
	dead    bool // removed from the store; writers must look up again
}

// Store owns one window per subject. The map is guarded by a store-wide
// lock held only for lookup; each window has its own lock so updates for
// one subject never block another.
type Store struct {
	mu         sync.RWMutex
	windows    map[string]*window
	capacity   int
	idleTTL    time.Duration
	stableBand float64
	now        func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		windows:    make(map[string]*window),
		capacity:   DefaultCapacity,
		idleTTL:    DefaultIdleTTL,
		stableBand: DefaultStableBand,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capacity returns the per-subject window size.
func (s *Store) Capacity() int { return s.capacity }

func (s *Store) get(subject string, create bool) *window {
	s.mu.RLock()
	w, ok := s.windows[subject]
	s.mu.RUnlock()
	if ok || !create {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.windows[subject]; ok {
		return w
	}
	w = &window{ring: NewRing[Sample](s.capacity)}
	s.windows[subject] = w
	return w
}

// Append adds a sample to the subject's window, evicting the oldest when
// full. It reports whether an entry was evicted.
func (s *Store) Append(_ context.Context, subject string, sample Sample) bool {
	for {
		w := s.get(subject, true)
		w.mu.Lock()
		if w.dead {
			w.mu.Unlock()
			continue
		}
		w.touched = s.now()
		_, evicted := w.ring.Push(sample)
		w.mu.Unlock()
		return evicted
	}
}

// Snapshot returns the subject's samples oldest first.
func (s *Store) Snapshot(_ context.Context, subject string) []Sample {
	w := s.get(subject, false)
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ring.Items()
}

// Len returns the number of samples stored for subject.
func (s *Store) Len(_ context.Context, subject string) int {
	w := s.get(subject, false)
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ring.Len()
}

// Delete drops a subject's window.
func (s *Store) Delete(_ context.Context, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[subject]; ok {
		w.mu.Lock()
		w.dead = true
		w.mu.Unlock()
		delete(s.windows, subject)
	}
}

// Subjects returns the number of tracked subjects.
func (s *Store) Subjects() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows)
}

// Prune drops windows idle for longer than the configured TTL and returns
// how many were removed.
func (s *Store) Prune(_ context.Context) int {
	cutoff := s.now().Add(-s.idleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, w := range s.windows {
		w.mu.Lock()
		idle := w.touched.Before(cutoff)
		if idle {
			w.dead = true
		}
		w.mu.Unlock()
		if idle {
			delete(s.windows, id)
			removed++
		}
	}
	return removed
}

// Trend compares the mean of the last k values of metric against the
// prior k. Fewer than 2k samples yield insufficient_data.
func (s *Store) Trend(ctx context.Context, subject string, metric model.Metric, k int) TrendResult {
	return TrendOf(s.Snapshot(ctx, subject), metric, k, s.stableBand)
}

// TrendOf computes a trend over an oldest-first sample slice.
func TrendOf(samples []Sample, metric model.Metric, k int, band float64) TrendResult {
	res := TrendResult{Metric: metric, Direction: TrendInsufficientData, Samples: len(samples)}
	if k < 1 || len(samples) < 2*k {
		return res
	}
	tail := samples[len(samples)-2*k:]
	res.Prior = meanOf(tail[:k], metric)
	res.Recent = meanOf(tail[k:], metric)
	res.Delta = res.Recent - res.Prior
	switch {
	case math.Abs(res.Delta) <= band:
		res.Direction = TrendStable
	case res.Delta > 0:
		res.Direction = TrendIncreasing
	default:
		res.Direction = TrendDecreasing
	}
	return res
}

func meanOf(samples []Sample, metric model.Metric) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, smp := range samples {
		sum += smp.Estimate.Value(metric)
	}
	return sum / float64(len(samples))
}
