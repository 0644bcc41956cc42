package recommend

import (
	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
)

// Recommendation types.
const (
	TypeDifficulty = "difficulty"
	TypeEngagement = "engagement"
	TypePacing     = "pacing"
	TypeChallenge  = "challenge"
	TypeBreak      = "break"
	TypeFocus      = "focus"
	TypeWellness   = "wellness"
	TypeFormat     = "format"
	TypeProgress   = "progression"
	TypePractice   = "practice"
	TypeReview     = "review"
	TypeSupport    = "emotional_support"
)

// Timeframes.
const (
	Immediate       = "immediate"
	Within10Minutes = "within_10_minutes"
	Within30Minutes = "within_30_minutes"
	NextActivity    = "next_activity"
	NextSession     = "next_session"
)

// DefaultRules returns the stock rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		StateRule{},
		FatigueRule{},
		AttentionRule{},
		RiskRule{},
		ContentRule{},
		OutcomeRule{},
		EmotionRule{},
	}
}

func rec(typ, msg string, p model.Priority, timeframe string, conf float64) model.Recommendation {
	return model.Recommendation{Type: typ, Message: msg, Priority: p, Timeframe: timeframe, Confidence: model.Clamp01(conf)}
}

// StateRule reacts to the discrete cognitive state.
type StateRule struct{}

// Name implements Rule.
func (StateRule) Name() string { return "state" }

// Evaluate implements Rule.
func (StateRule) Evaluate(c Context) []model.Recommendation {
	switch c.State {
	case model.StateStruggling:
		return []model.Recommendation{rec(TypeDifficulty, "Reduce difficulty and add a worked example", model.PriorityHigh, Immediate, c.Conf)}
	case model.StateDisengaged:
		return []model.Recommendation{rec(TypeEngagement, "Switch to interactive content to re-engage", model.PriorityHigh, Immediate, c.Conf)}
	case model.StateModerate:
		return []model.Recommendation{rec(TypePacing, "Keep the current pace and check understanding", model.PriorityMedium, NextActivity, c.Conf)}
	case model.StateOptimal:
		return []model.Recommendation{rec(TypeChallenge, "Introduce more challenging material", model.PriorityLow, NextActivity, c.Conf)}
	default:
		return nil
	}
}

// FatigueRule suggests breaks scaled to fatigue.
type FatigueRule struct{}

// Name implements Rule.
func (FatigueRule) Name() string { return "fatigue" }

// Evaluate implements Rule.
func (FatigueRule) Evaluate(c Context) []model.Recommendation {
	f := c.Signals.Fatigue
	conf := c.Signals.Confidence[model.MetricFatigue]
	switch {
	case f > 0.8:
		return []model.Recommendation{rec(TypeBreak, "Take an immediate 15-20 minute break", model.PriorityUrgent, Immediate, conf)}
	case f > 0.6:
		return []model.Recommendation{rec(TypeBreak, "Take a 10-15 minute break", model.PriorityHigh, Within10Minutes, conf)}
	case f > 0.4:
		return []model.Recommendation{rec(TypeBreak, "Take a 5-10 minute break soon", model.PriorityMedium, Within30Minutes, conf)}
	default:
		return nil
	}
}

// AttentionRule handles low attention and wandering gaze.
type AttentionRule struct{}

// Name implements Rule.
func (AttentionRule) Name() string { return "attention" }

// Evaluate implements Rule.
func (AttentionRule) Evaluate(c Context) []model.Recommendation {
	a := c.Signals.Attention
	conf := c.Signals.Confidence[model.MetricAttention]
	var out []model.Recommendation
	switch {
	case a < 0.4:
		out = append(out, rec(TypeFocus, "Minimize distractions and start a short focus interval", model.PriorityHigh, Immediate, conf))
	case a < 0.6:
		out = append(out, rec(TypeFocus, "Break the task into smaller steps", model.PriorityMedium, NextActivity, conf))
	}
	if c.Temporal != nil && c.Temporal.GazePattern == history.GazeDistracted {
		out = append(out, rec(TypeFocus, "Gaze is wandering; re-anchor with a visual cue", model.PriorityMedium, Immediate, 1-c.Temporal.GazeStability))
	}
	return out
}

// RiskRule maps each risk factor to a mitigation.
type RiskRule struct{}

// Name implements Rule.
func (RiskRule) Name() string { return "risk" }

// Evaluate implements Rule.
func (RiskRule) Evaluate(c Context) []model.Recommendation {
	var out []model.Recommendation
	for _, r := range c.Risks {
		switch r.Type {
		case classifier.RiskBurnout:
			out = append(out, rec(TypeWellness, "Consider ending the session and resting", model.PriorityUrgent, Immediate, r.Probability))
		case classifier.RiskFatigue:
			out = append(out, rec(TypeBreak, "Stretch and hydrate before continuing", model.PriorityHigh, Within10Minutes, r.Probability))
		case classifier.RiskCognitiveOverload:
			out = append(out, rec(TypeDifficulty, "Pause new material and review fundamentals", model.PriorityHigh, Immediate, r.Probability))
		case classifier.RiskDisengagement:
			out = append(out, rec(TypeEngagement, "Add a quick quiz or hands-on exercise", model.PriorityMedium, NextActivity, r.Probability))
		case classifier.RiskAttentionDrift:
			out = append(out, rec(TypeFocus, "Re-anchor attention with a short recap", model.PriorityMedium, Immediate, r.Probability))
		case classifier.RiskFrustration:
			out = append(out, rec(TypeSupport, "Offer encouragement and a hint", model.PriorityMedium, Immediate, r.Probability))
		}
	}
	return out
}

// ContentRule recommends format and difficulty changes.
type ContentRule struct{}

// Name implements Rule.
func (ContentRule) Name() string { return "content" }

// Evaluate implements Rule.
func (ContentRule) Evaluate(c Context) []model.Recommendation {
	a := Adapt(c.Signals, "")
	var out []model.Recommendation
	switch a.Format {
	case model.FormatVisual:
		out = append(out, rec(TypeFormat, "Switch to visual explanations with more detail", model.PriorityHigh, NextActivity, c.Conf))
	case model.FormatInteractive:
		out = append(out, rec(TypeFormat, "Switch to interactive content", model.PriorityMedium, NextActivity, c.Conf))
	}
	if a.Difficulty == DifficultyIncrease {
		out = append(out, rec(TypeDifficulty, "Increase difficulty for the next activity", model.PriorityLow, NextActivity, c.Conf))
	}
	if c.Content != nil && c.Content.Topic != "" {
		out = append(out, rec(TypeFormat, "Continue with the adapted "+c.Content.Format+" material on "+c.Content.Topic, model.PriorityLow, NextActivity, c.Conf))
	}
	return out
}

// OutcomeRule follows the predicted next action.
type OutcomeRule struct{}

// Name implements Rule.
func (OutcomeRule) Name() string { return "outcome" }

// Evaluate implements Rule.
func (OutcomeRule) Evaluate(c Context) []model.Recommendation {
	if c.Outcome == nil {
		return nil
	}
	conf := c.Outcome.Confidence
	switch c.Outcome.NextAction {
	case model.ActionAdvance:
		return []model.Recommendation{rec(TypeProgress, "Ready to advance to the next module", model.PriorityMedium, NextSession, conf)}
	case model.ActionContinue:
		return []model.Recommendation{rec(TypeProgress, "Continue with the current module", model.PriorityLow, NextActivity, conf)}
	case model.ActionPractice:
		return []model.Recommendation{rec(TypePractice, "Practice with extra exercises before moving on", model.PriorityMedium, NextActivity, conf)}
	case model.ActionReview:
		return []model.Recommendation{rec(TypeReview, "Review prerequisite material", model.PriorityHigh, NextActivity, conf)}
	default:
		return nil
	}
}

// EmotionRule reacts to a clearly dominant emotion.
type EmotionRule struct{}

// Name implements Rule.
func (EmotionRule) Name() string { return "emotion" }

const emotionFloor = 0.4

// Evaluate implements Rule.
func (EmotionRule) Evaluate(c Context) []model.Recommendation {
	label, p := c.Signals.DominantEmotion()
	if p < emotionFloor {
		return nil
	}
	switch label {
	case model.EmotionSad:
		return []model.Recommendation{rec(TypeSupport, "Encourage with a positive note and a short pause", model.PriorityMedium, Immediate, p)}
	case model.EmotionAngry:
		return []model.Recommendation{rec(TypeSupport, "Offer a hint or an alternative explanation", model.PriorityMedium, Immediate, p)}
	case model.EmotionFearful:
		return []model.Recommendation{rec(TypeSupport, "Lower the stakes by switching to practice mode", model.PriorityMedium, NextActivity, p)}
	case model.EmotionHappy:
		return []model.Recommendation{rec(TypeChallenge, "Good mood: a fitting moment for harder content", model.PriorityLow, NextActivity, p)}
	case model.EmotionSurprised:
		return []model.Recommendation{rec(TypeReview, "Clarify the last concept", model.PriorityLow, Immediate, p)}
	default:
		return nil
	}
}
