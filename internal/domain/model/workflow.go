package model

import (
	"slices"
	"time"
)

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

// Run statuses.
const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool { return s == RunCompleted || s == RunFailed }

// StepStatus is the lifecycle state of one step.
type StepStatus string

// Step statuses. Skipped marks steps never started after a stop.
const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Workflow step names in execution order.
const (
	StepStateAnalysis     = "state-analysis"
	StepContentGeneration = "content-generation"
	StepOutcomePrediction = "outcome-prediction"
	StepRecommendation    = "recommendation"
	StepPathCreation      = "path-creation"
)

// StepRecord tracks one step of a run.
type StepRecord struct {
	Name      string     `json:"name"`
	Required  bool       `json:"required"`
	Status    StepStatus `json:"status"`
	StartedAt time.Time  `json:"started_at,omitzero"`
	EndedAt   time.Time  `json:"ended_at,omitzero"`
	Error     string     `json:"error,omitempty"`
}

// Duration returns how long the step ran, zero if it never finished.
func (s StepRecord) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Content is generated explanatory material.
type Content struct {
	Topic          string   `json:"topic"`
	Text           string   `json:"text"`
	AdaptationTags []string `json:"adaptation_tags"`
	Difficulty     string   `json:"difficulty"`
	Format         string   `json:"format"`
	Pacing         string   `json:"pacing"`
	Source         string   `json:"source"`
}

// Next actions recommended by outcome prediction.
const (
	ActionAdvance  = "advance"
	ActionContinue = "continue"
	ActionPractice = "practice"
	ActionReview   = "review"
)

// Content formats.
const (
	FormatText        = "text"
	FormatVisual      = "visual"
	FormatInteractive = "interactive"
)

// OutcomePrediction estimates how the learner will perform next.
type OutcomePrediction struct {
	PredictedScore float64 `json:"predicted_score"`
	Confidence     float64 `json:"confidence"`
	NextAction     string  `json:"next_action"`
	ContentType    string  `json:"content_type"`
}

// PathSession is one sitting of a learning path.
type PathSession struct {
	Index    int      `json:"index"`
	Modules  []string `json:"modules"`
	Minutes  int      `json:"minutes"`
	BreakMin int      `json:"break_minutes"`
}

// LearningPath is an ordered plan through catalog modules.
type LearningPath struct {
	ID             string        `json:"path_id"`
	SubjectID      string        `json:"subject_id"`
	Topic          string        `json:"topic"`
	Sessions       []PathSession `json:"sessions"`
	TotalMinutes   int           `json:"total_minutes"`
	SessionMinutes int           `json:"session_minutes"`
}

// WorkflowResult aggregates step outputs. Any field may be nil when the
// producing step failed or was skipped.
type WorkflowResult struct {
	State           CognitiveState     `json:"cognitive_state,omitempty"`
	Risks           []RiskFactor       `json:"risk_factors,omitempty"`
	Estimate        *FusedEstimate     `json:"-"`
	Content         *Content           `json:"content,omitempty"`
	Outcome         *OutcomePrediction `json:"outcome,omitempty"`
	Recommendations []Recommendation   `json:"recommendations,omitempty"`
	Path            *LearningPath      `json:"learning_path,omitempty"`
}

// WorkflowRun is one execution of the adaptation pipeline.
type WorkflowRun struct {
	ID        string          `json:"id"`
	SubjectID string          `json:"subject_id"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time,omitzero"`
	Steps     []StepRecord    `json:"steps"`
	Status    RunStatus       `json:"status"`
	Insights  []string        `json:"insights,omitempty"`
	Result    *WorkflowResult `json:"result,omitempty"`
}

// Clone returns a copy safe to hand outside the owning lock.
func (r *WorkflowRun) Clone() WorkflowRun {
	out := *r
	out.Steps = slices.Clone(r.Steps)
	out.Insights = slices.Clone(r.Insights)
	if r.Result != nil {
		res := *r.Result
		res.Risks = slices.Clone(r.Result.Risks)
		res.Recommendations = slices.Clone(r.Result.Recommendations)
		out.Result = &res
	}
	return out
}

// RunSummary is the append-only history record of a finished run.
type RunSummary struct {
	ID          string         `json:"id"`
	SubjectID   string         `json:"subject_id"`
	Status      RunStatus      `json:"status"`
	State       CognitiveState `json:"cognitive_state,omitempty"`
	FailedSteps []string       `json:"failed_steps,omitempty"`
	Insights    []string       `json:"insights,omitempty"`
	Duration    time.Duration  `json:"duration_ns"`
	EndedAt     time.Time      `json:"ended_at"`
}
