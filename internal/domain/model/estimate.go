package model

import (
	"maps"
	"slices"
	"time"
)

// Role is the preference slot a source occupies in the ensemble.
type Role string

// Ensemble roles in preference order.
const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
	RoleHeuristic Role = "heuristic"
)

// Result sources reported to callers.
const (
	SourceEnsemble = "ensemble"
	SourceFallback = "fallback"
)

// ModelEstimate is one source's output for one metric. Build it with
// Available or Unavailable so absence is always explicit.
type ModelEstimate struct {
	Source       Role               `json:"source"`
	ModelID      string             `json:"model_id"`
	Metric       Metric             `json:"metric"`
	Value        float64            `json:"value"`
	Distribution map[string]float64 `json:"distribution,omitempty"`
	Confidence   float64            `json:"confidence"`
	Unavailable  bool               `json:"unavailable"`
	Reason       string             `json:"reason,omitempty"`
	Simulated    bool               `json:"simulated,omitempty"`
}

// Available builds a present estimate with value and confidence clamped.
func Available(role Role, modelID string, metric Metric, value, confidence float64) ModelEstimate {
	return ModelEstimate{
		Source:     role,
		ModelID:    modelID,
		Metric:     metric,
		Value:      Clamp01(value),
		Confidence: Clamp01(confidence),
	}
}

// AvailableDistribution builds a present emotion estimate.
func AvailableDistribution(role Role, modelID string, dist map[string]float64, confidence float64) ModelEstimate {
	return ModelEstimate{
		Source:       role,
		ModelID:      modelID,
		Metric:       MetricEmotion,
		Distribution: Normalize(dist),
		Confidence:   Clamp01(confidence),
	}
}

// Unavailable builds an explicit absence with its reason.
func Unavailable(role Role, modelID string, metric Metric, reason string) ModelEstimate {
	return ModelEstimate{
		Source:      role,
		ModelID:     modelID,
		Metric:      metric,
		Unavailable: true,
		Reason:      reason,
	}
}

// AsSimulated marks the estimate as a deterministic stand-in.
func (e ModelEstimate) AsSimulated() ModelEstimate {
	e.Simulated = true
	return e
}

// FusedEstimate is the ensemble output for one frame. Treat it as
// immutable; accessors hand out copies.
type FusedEstimate struct {
	signals    SignalVector
	confidence float64
	degraded   bool
	provenance []string
	simulated  bool
	source     string
	createdAt  time.Time
}

// FusedParams carries the fields of a new FusedEstimate.
type FusedParams struct {
	Signals    SignalVector
	Confidence float64
	Degraded   bool
	Provenance []string
	Simulated  bool
	Source     string
	CreatedAt  time.Time
}

// MinConfidence is the floor for any reported fused confidence.
const MinConfidence = 0.5

// NewFusedEstimate freezes p into a FusedEstimate. Signals are clamped
// and confidence is bounded to [MinConfidence, 1].
func NewFusedEstimate(p FusedParams) FusedEstimate {
	src := p.Source
	if src == "" {
		src = SourceEnsemble
	}
	return FusedEstimate{
		signals:    p.Signals.Clamp(),
		confidence: ClampRange(p.Confidence, MinConfidence, 1),
		degraded:   p.Degraded,
		provenance: slices.Clone(p.Provenance),
		simulated:  p.Simulated,
		source:     src,
		createdAt:  p.CreatedAt,
	}
}

// Signals returns a copy of the fused signal vector.
func (f FusedEstimate) Signals() SignalVector { return f.signals.Copy() }

// Confidence returns the overall confidence in [0.5,1].
func (f FusedEstimate) Confidence() float64 { return f.confidence }

// Degraded reports low certainty.
func (f FusedEstimate) Degraded() bool { return f.degraded }

// Provenance lists contributing sources.
func (f FusedEstimate) Provenance() []string { return slices.Clone(f.provenance) }

// Simulated reports whether any stand-in estimate contributed.
func (f FusedEstimate) Simulated() bool { return f.simulated }

// Source returns ensemble or fallback.
func (f FusedEstimate) Source() string { return f.source }

// CreatedAt returns when the estimate was produced.
func (f FusedEstimate) CreatedAt() time.Time { return f.createdAt }

// Value returns one scalar metric.
func (f FusedEstimate) Value(m Metric) float64 { return f.signals.Get(m) }

// MetricConfidence returns the per-metric confidence, falling back to
// the overall value.
func (f FusedEstimate) MetricConfidence(m Metric) float64 {
	if c, ok := f.signals.Confidence[m]; ok {
		return c
	}
	return f.confidence
}

// Emotions returns a copy of the emotion distribution.
func (f FusedEstimate) Emotions() map[string]float64 { return maps.Clone(f.signals.Emotions) }

// WithSource returns a copy tagged with a different source; used when a
// fallback path produced the estimate.
func (f FusedEstimate) WithSource(source string) FusedEstimate {
	out := f
	out.signals = f.signals.Copy()
	out.provenance = slices.Clone(f.provenance)
	out.source = source
	if source == SourceFallback {
		out.degraded = true
	}
	return out
}
