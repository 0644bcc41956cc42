package fusion

import (
	"time"

	"github.com/okian/attune/internal/domain/model"
)

// Default ensemble weights by role.
const (
	DefaultPrimaryWeight   = 0.5
	DefaultSecondaryWeight = 0.3
	DefaultHeuristicWeight = 0.2
	DefaultVarianceGain    = 10.0
	DefaultProviderTimeout = 800 * time.Millisecond
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the role weights. Non-positive values are ignored.
func WithWeights(primary, secondary, heuristic float64) Option {
	return func(s *Scorer) {
		for role, w := range map[model.Role]float64{
			model.RolePrimary:   primary,
			model.RoleSecondary: secondary,
			model.RoleHeuristic: heuristic,
		} {
			if w > 0 {
				s.weights[role] = w
			}
		}
	}
}

// WithVarianceGain sets how sharply disagreement between sources lowers
// confidence.
func WithVarianceGain(k float64) Option {
	return func(s *Scorer) {
		if k >= 0 {
			s.varianceGain = k
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// EnsembleOption applies a configuration option to the Ensemble.
type EnsembleOption func(*Ensemble)

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) EnsembleOption {
	return func(e *Ensemble) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithProviders registers model providers.
func WithProviders(p ...ModelProvider) EnsembleOption {
	return func(e *Ensemble) {
		for _, pr := range p {
			if pr != nil {
				e.providers = append(e.providers, pr)
			}
		}
	}
}
