package classifier

import (
	"github.com/okian/attune/internal/domain/model"
)

// Performance holds derived readiness indicators, each in [0,1].
type Performance struct {
	Readiness     float64 `json:"learning_readiness"`
	Stress        float64 `json:"stress"`
	CognitiveLoad float64 `json:"cognitive_load"`
}

// Evaluate derives performance indicators. Load tracks confusion; stress
// mixes load with emotional instability; readiness is what remains after
// load, stress and fatigue.
func Evaluate(sv model.SignalVector, emotionStability float64) Performance {
	load := model.Clamp01(sv.Confusion)
	stress := model.Clamp01(0.6*load + 0.4*(1-model.Clamp01(emotionStability)))
	readiness := model.Clamp01(1 - (0.5*load + 0.3*stress + 0.2*model.Clamp01(sv.Fatigue)))
	return Performance{Readiness: readiness, Stress: stress, CognitiveLoad: load}
}

// QualityLabel buckets a [0,1] score for display.
func QualityLabel(v float64) string {
	switch {
	case v >= 0.9:
		return "Excellent"
	case v >= 0.8:
		return "Very Good"
	case v >= 0.7:
		return "Good"
	case v >= 0.6:
		return "Fair"
	case v >= 0.4:
		return "Poor"
	default:
		return "Very Low"
	}
}
