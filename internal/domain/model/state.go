package model

// CognitiveState is the discrete class derived from a FusedEstimate.
type CognitiveState string

// Cognitive states.
const (
	StateOptimal    CognitiveState = "optimal"
	StateModerate   CognitiveState = "moderate"
	StateStruggling CognitiveState = "struggling"
	StateDisengaged CognitiveState = "disengaged"
)

// Risk severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// RiskFactor is an independently detected risk.
type RiskFactor struct {
	Type        string  `json:"type"`
	Severity    string  `json:"severity"`
	Probability float64 `json:"probability"`
}

// Priority orders recommendations; higher is more pressing.
type Priority int

// Priorities.
const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

// String returns the lower-case priority name.
func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// MarshalText renders the priority by name.
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Recommendation is one adaptation suggestion.
type Recommendation struct {
	Type       string   `json:"type"`
	Message    string   `json:"message"`
	Priority   Priority `json:"priority"`
	Source     string   `json:"source"`
	Timeframe  string   `json:"timeframe"`
	Confidence float64  `json:"confidence,omitempty"`
}
