package history

import (
	"sort"

	"github.com/okian/attune/internal/domain/model"
)

// Emotion smoothing parameters.
const (
	smoothingMinSamples = 3
	smoothingWindow     = 5
	smoothingAlpha      = 0.7 // weight of the current frame
	stayProbability     = 0.6
	relatedProbability  = 0.15
	otherProbability    = 0.02
)

// SmoothedEmotion is the dominant emotion after blending the current frame
// with the recent window.
type SmoothedEmotion struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Smoothed   bool    `json:"smoothed"`
}

// SmoothEmotion weighs the current dominant label against the labels of
// the last few prior samples through a transition matrix. With fewer than
// three prior samples the current label is returned as is.
func SmoothEmotion(prior []Sample, label string, confidence float64) SmoothedEmotion {
	if len(prior) < smoothingMinSamples {
		return SmoothedEmotion{Label: label, Confidence: confidence}
	}
	recent := tail(prior, smoothingWindow)
	type seen struct {
		label string
		p     float64
	}
	history := make([]seen, len(recent))
	candidates := map[string]struct{}{label: {}}
	for _, l := range emotionLabels() {
		candidates[l] = struct{}{}
	}
	for i, smp := range recent {
		l, p := smp.Estimate.Signals().DominantEmotion()
		history[i] = seen{label: l, p: p}
		candidates[l] = struct{}{}
	}
	labels := make([]string, 0, len(candidates))
	for l := range candidates {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	best := SmoothedEmotion{Label: label, Smoothed: true, Confidence: -1}
	for _, to := range labels {
		var score float64
		for _, h := range history {
			score += transition(h.label, to) * h.p
		}
		score /= float64(len(history))
		if to == label {
			score = smoothingAlpha*confidence + (1-smoothingAlpha)*score
		} else {
			score *= 1 - smoothingAlpha
		}
		if score > best.Confidence {
			best.Label, best.Confidence = to, score
		}
	}
	best.Confidence = model.Clamp01(best.Confidence)
	return best
}

// transition is the probability of moving from one dominant emotion to
// another between frames.
func transition(from, to string) float64 {
	switch {
	case from == to:
		return stayProbability
	case related(from, to) || related(to, from):
		return relatedProbability
	default:
		return otherProbability
	}
}

func related(a, b string) bool {
	switch a {
	case model.EmotionHappy, model.EmotionFearful:
		return b == model.EmotionSurprised
	case model.EmotionSad:
		return b == model.EmotionNeutral
	case model.EmotionAngry:
		return b == model.EmotionDisgusted
	}
	return false
}

func emotionLabels() []string {
	return []string{
		model.EmotionNeutral,
		model.EmotionHappy,
		model.EmotionSad,
		model.EmotionAngry,
		model.EmotionSurprised,
		model.EmotionFearful,
		model.EmotionDisgusted,
	}
}
