// Package classifier maps fused signals to a cognitive state and a set of
// independent risk factors.
package classifier

import (
	"math"

	"github.com/okian/attune/internal/domain/model"
)

// Risk factor types.
const (
	RiskBurnout           = "burnout"
	RiskFatigue           = "fatigue"
	RiskCognitiveOverload = "cognitive_overload"
	RiskDisengagement     = "disengagement"
	RiskAttentionDrift    = "attention_drift"
	RiskFrustration       = "frustration"
)

// Classifier is stateless after construction.
type Classifier struct {
	th Thresholds
}

// New creates a classifier with the default thresholds.
func New(opts ...Option) *Classifier {
	c := &Classifier{th: DefaultThresholds()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Thresholds returns the active thresholds.
func (c *Classifier) Thresholds() Thresholds { return c.th }

// Classify returns the state and the risk factors for sv.
func (c *Classifier) Classify(sv model.SignalVector) (model.CognitiveState, []model.RiskFactor) {
	return c.State(sv), c.Risks(sv)
}

// State applies the rules in order; the first match wins.
func (c *Classifier) State(sv model.SignalVector) model.CognitiveState {
	att, con, fat, eng := pct(sv.Attention), pct(sv.Confusion), pct(sv.Fatigue), pct(sv.Engagement)
	switch {
	case att > c.th.OptimalAttention && con < c.th.OptimalConfusion && fat < c.th.OptimalFatigue:
		return model.StateOptimal
	case con > c.th.StrugglingConfuse || fat > c.th.StrugglingFatigue:
		return model.StateStruggling
	case att < c.th.DisengagedLevel || eng < c.th.DisengagedLevel:
		return model.StateDisengaged
	default:
		return model.StateModerate
	}
}

// Risks evaluates every risk rule independently.
func (c *Classifier) Risks(sv model.SignalVector) []model.RiskFactor {
	att, con, fat, eng := pct(sv.Attention), pct(sv.Confusion), pct(sv.Fatigue), pct(sv.Engagement)
	var out []model.RiskFactor
	switch {
	case fat > c.th.BurnoutFatigue:
		out = append(out, model.RiskFactor{Type: RiskBurnout, Severity: model.SeverityHigh, Probability: 0.8})
	case fat > c.th.FatigueRisk:
		out = append(out, model.RiskFactor{Type: RiskFatigue, Severity: model.SeverityMedium, Probability: 0.6})
	}
	if con > c.th.OverloadConfusion {
		out = append(out, model.RiskFactor{Type: RiskCognitiveOverload, Severity: model.SeverityHigh, Probability: 0.75})
	}
	if eng < c.th.LowEngagement {
		out = append(out, model.RiskFactor{Type: RiskDisengagement, Severity: model.SeverityHigh, Probability: 0.7})
	}
	if att < c.th.DriftAttention {
		out = append(out, model.RiskFactor{Type: RiskAttentionDrift, Severity: model.SeverityMedium, Probability: 0.6})
	}
	if label, p := sv.DominantEmotion(); p >= c.th.FrustrationProb && negative(label) {
		out = append(out, model.RiskFactor{Type: RiskFrustration, Severity: model.SeverityMedium, Probability: 0.5})
	}
	return out
}

func negative(label string) bool {
	switch label {
	case model.EmotionAngry, model.EmotionSad, model.EmotionFearful:
		return true
	default:
		return false
	}
}

// pct scales to percent, rounded so 0.3 compares as exactly 30.
func pct(v float64) float64 { return math.Round(model.Clamp01(v)*1e6) / 1e4 }
