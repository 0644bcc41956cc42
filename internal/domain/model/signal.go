package model

import (
	"maps"
	"math"
	"sort"
)

// Metric names one scored dimension of cognitive state.
type Metric string

// Supported metrics.
const (
	MetricAttention  Metric = "attention"
	MetricConfusion  Metric = "confusion"
	MetricFatigue    Metric = "fatigue"
	MetricEngagement Metric = "engagement"
	MetricEmotion    Metric = "emotion"
)

// ScalarMetrics lists the numeric metrics in their canonical order.
var ScalarMetrics = []Metric{MetricAttention, MetricConfusion, MetricFatigue, MetricEngagement} //nolint:gochecknoglobals // read-only table

// Emotion labels produced by the heuristic and expected from emotion models.
const (
	EmotionNeutral   = "neutral"
	EmotionHappy     = "happy"
	EmotionSad       = "sad"
	EmotionAngry     = "angry"
	EmotionSurprised = "surprised"
	EmotionFearful   = "fearful"
	EmotionDisgusted = "disgusted"
)

// SignalVector holds per-metric values in [0,1] and an emotion distribution.
type SignalVector struct {
	Attention  float64            `json:"attention"`
	Confusion  float64            `json:"confusion"`
	Fatigue    float64            `json:"fatigue"`
	Engagement float64            `json:"engagement"`
	Emotions   map[string]float64 `json:"emotions,omitempty"`
	Confidence map[Metric]float64 `json:"confidence,omitempty"`
}

// Get returns the value of a scalar metric.
func (s SignalVector) Get(m Metric) float64 {
	switch m {
	case MetricAttention:
		return s.Attention
	case MetricConfusion:
		return s.Confusion
	case MetricFatigue:
		return s.Fatigue
	case MetricEngagement:
		return s.Engagement
	default:
		return 0
	}
}

// Set assigns a scalar metric, clamped to [0,1].
func (s *SignalVector) Set(m Metric, v float64) {
	v = Clamp01(v)
	switch m {
	case MetricAttention:
		s.Attention = v
	case MetricConfusion:
		s.Confusion = v
	case MetricFatigue:
		s.Fatigue = v
	case MetricEngagement:
		s.Engagement = v
	}
}

// Clamp returns a copy with every field forced into [0,1] and the
// emotion distribution normalized.
func (s SignalVector) Clamp() SignalVector {
	out := SignalVector{
		Attention:  Clamp01(s.Attention),
		Confusion:  Clamp01(s.Confusion),
		Fatigue:    Clamp01(s.Fatigue),
		Engagement: Clamp01(s.Engagement),
		Emotions:   Normalize(s.Emotions),
	}
	if len(s.Confidence) > 0 {
		out.Confidence = make(map[Metric]float64, len(s.Confidence))
		for k, v := range s.Confidence {
			out.Confidence[k] = Clamp01(v)
		}
	}
	return out
}

// Copy returns a deep copy.
func (s SignalVector) Copy() SignalVector {
	out := s
	out.Emotions = maps.Clone(s.Emotions)
	out.Confidence = maps.Clone(s.Confidence)
	return out
}

// DominantEmotion returns the most probable label and its probability.
// Ties resolve alphabetically so the answer is stable.
func (s SignalVector) DominantEmotion() (string, float64) {
	if len(s.Emotions) == 0 {
		return EmotionNeutral, 0
	}
	labels := make([]string, 0, len(s.Emotions))
	for k := range s.Emotions {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	best, bestP := labels[0], s.Emotions[labels[0]]
	for _, l := range labels[1:] {
		if s.Emotions[l] > bestP {
			best, bestP = l, s.Emotions[l]
		}
	}
	return best, bestP
}

// Clamp01 forces v into [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	return ClampRange(v, 0, 1)
}

// ClampRange forces v into [lo,hi]. NaN maps to lo.
func ClampRange(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

// Normalize clamps negative probabilities to zero and rescales the
// distribution to sum to 1. An empty or all-zero map yields nil.
func Normalize(dist map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range dist {
		if v > 0 {
			sum += v
		}
	}
	if sum == 0 {
		return nil
	}
	out := make(map[string]float64, len(dist))
	for k, v := range dist {
		if v > 0 {
			out[k] = v / sum
		} else {
			out[k] = 0
		}
	}
	return out
}
