package recommend

import (
	"github.com/okian/attune/internal/domain/model"
)

// Difficulty adjustments.
const (
	DifficultyIncrease = "increase"
	DifficultyDecrease = "decrease"
	DifficultyMaintain = "maintain"
)

// Adaptation describes how content should change for the current state.
type Adaptation struct {
	Difficulty    string `json:"difficulty_adjustment"`
	Explanation   string `json:"explanation_style"`
	Interactivity string `json:"interactivity_level"`
	Break         bool   `json:"break_suggestion"`
	Pacing        string `json:"pacing"`
	Format        string `json:"primary_format"`
}

// Adapt derives content adaptations from signals. format is the current
// primary format; empty means text.
func Adapt(sv model.SignalVector, format string) Adaptation {
	if format == "" {
		format = model.FormatText
	}
	a := Adaptation{
		Difficulty:    DifficultyMaintain,
		Explanation:   "concise",
		Interactivity: "medium",
		Pacing:        "normal",
		Format:        format,
	}
	switch {
	case sv.Confusion >= 0.6:
		a.Difficulty = DifficultyDecrease
		a.Explanation = "detailed"
	case sv.Engagement >= 0.75 && sv.Attention >= 0.7:
		a.Difficulty = DifficultyIncrease
	}
	switch {
	case sv.Attention < 0.4 || sv.Engagement < 0.4:
		a.Interactivity = "high"
	case sv.Attention > 0.8 && sv.Engagement > 0.8:
		a.Interactivity = "low"
	}
	if sv.Fatigue > 0.7 {
		a.Break = true
		a.Pacing = "slower"
	}
	switch {
	case sv.Confusion > 0.5:
		a.Format = model.FormatVisual
	case sv.Attention < 0.4:
		a.Format = model.FormatInteractive
	}
	return a
}

// Tags renders the adaptation as "key:value" labels.
func (a Adaptation) Tags() []string {
	tags := []string{
		"difficulty:" + a.Difficulty,
		"explanation:" + a.Explanation,
		"interactivity:" + a.Interactivity,
		"pacing:" + a.Pacing,
		"format:" + a.Format,
	}
	if a.Break {
		tags = append(tags, "break")
	}
	return tags
}

// DifficultyLevel maps an adjustment onto a three-step scale.
func (a Adaptation) DifficultyLevel() string {
	switch a.Difficulty {
	case DifficultyIncrease:
		return "advanced"
	case DifficultyDecrease:
		return "beginner"
	default:
		return "intermediate"
	}
}
