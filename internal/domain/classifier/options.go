package classifier

// Thresholds are percentages; signal values in [0,1] are scaled by 100
// before comparison.
type Thresholds struct {
	OptimalAttention  float64 `koanf:"optimal_attention"`
	OptimalConfusion  float64 `koanf:"optimal_confusion"`
	OptimalFatigue    float64 `koanf:"optimal_fatigue"`
	StrugglingConfuse float64 `koanf:"struggling_confusion"`
	StrugglingFatigue float64 `koanf:"struggling_fatigue"`
	DisengagedLevel   float64 `koanf:"disengaged_level"`

	BurnoutFatigue    float64 `koanf:"burnout_fatigue"`
	FatigueRisk       float64 `koanf:"fatigue_risk"`
	OverloadConfusion float64 `koanf:"overload_confusion"`
	LowEngagement     float64 `koanf:"low_engagement"`
	DriftAttention    float64 `koanf:"drift_attention"`
	FrustrationProb   float64 `koanf:"frustration_probability"`
}

// DefaultThresholds returns the stock decision boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OptimalAttention:  80,
		OptimalConfusion:  20,
		OptimalFatigue:    30,
		StrugglingConfuse: 70,
		StrugglingFatigue: 80,
		DisengagedLevel:   40,

		BurnoutFatigue:    80,
		FatigueRisk:       60,
		OverloadConfusion: 70,
		LowEngagement:     30,
		DriftAttention:    40,
		FrustrationProb:   0.5,
	}
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithThresholds replaces the default thresholds. Zero fields keep their
// defaults.
func WithThresholds(t Thresholds) Option {
	return func(c *Classifier) {
		d := &c.th
		set := func(dst *float64, v float64) {
			if v > 0 {
				*dst = v
			}
		}
		set(&d.OptimalAttention, t.OptimalAttention)
		set(&d.OptimalConfusion, t.OptimalConfusion)
		set(&d.OptimalFatigue, t.OptimalFatigue)
		set(&d.StrugglingConfuse, t.StrugglingConfuse)
		set(&d.StrugglingFatigue, t.StrugglingFatigue)
		set(&d.DisengagedLevel, t.DisengagedLevel)
		set(&d.BurnoutFatigue, t.BurnoutFatigue)
		set(&d.FatigueRisk, t.FatigueRisk)
		set(&d.OverloadConfusion, t.OverloadConfusion)
		set(&d.LowEngagement, t.LowEngagement)
		set(&d.DriftAttention, t.DriftAttention)
		set(&d.FrustrationProb, t.FrustrationProb)
	}
}
