package recommend

import (
	"math"

	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
)

const trendBonus = 5.0

// PredictOutcome scores the next activity from readiness, adjusted by the
// attention trend, and picks the next action from the score band.
func PredictOutcome(perf classifier.Performance, trend string, confidence float64) model.OutcomePrediction {
	score := perf.Readiness * 100
	switch trend {
	case history.TrendIncreasing:
		score += trendBonus
	case history.TrendDecreasing:
		score -= trendBonus
	}
	score = math.Round(model.ClampRange(score, 0, 100)*10) / 10

	action, content := NextAction(score)
	return model.OutcomePrediction{
		PredictedScore: score,
		Confidence:     model.Clamp01(confidence),
		NextAction:     action,
		ContentType:    content,
	}
}

// NextAction returns the action and content type for a 0-100 score.
func NextAction(score float64) (string, string) {
	switch {
	case score >= 85:
		return model.ActionAdvance, "challenge"
	case score >= 70:
		return model.ActionContinue, "standard"
	case score >= 50:
		return model.ActionPractice, "practice_exercises"
	default:
		return model.ActionReview, "review_material"
	}
}
