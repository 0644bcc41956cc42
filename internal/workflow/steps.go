package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/attune/internal/adapters/contentgen"
	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/domain/recommend"
)

// Input starts a run. Frame may be nil, in which case the analyzer uses
// the subject's latest history.
type Input struct {
	SubjectID string               `json:"subject_id"`
	Topic     string               `json:"topic"`
	Format    string               `json:"format,omitempty"`
	Profile   map[string]string    `json:"profile,omitempty"`
	Frame     *model.LandmarkFrame `json:"frame,omitempty"`
}

// Analysis is the output of state analysis.
type Analysis struct {
	Estimate    model.FusedEstimate
	State       model.CognitiveState
	Risks       []model.RiskFactor
	Temporal    history.Temporal
	Performance classifier.Performance
}

// State is threaded through the steps of one run. Steps read what earlier
// steps produced and write their own output.
type State struct {
	Input      Input
	Analysis   *Analysis
	Adaptation recommend.Adaptation
	Result     model.WorkflowResult
	now        func() time.Time
}

// Step is one unit of the pipeline.
type Step struct {
	Name     string
	Required bool
	Run      func(ctx context.Context, st *State) error
}

// StateAnalyzer produces the cognitive state for a subject.
type StateAnalyzer interface {
	AnalyzeState(ctx context.Context, subjectID string, frame *model.LandmarkFrame) (Analysis, error)
}

// ContentGenerator produces adapted content.
type ContentGenerator interface {
	Generate(ctx context.Context, req contentgen.Request) (model.Content, error)
}

// Recommender ranks recommendations for a context.
type Recommender interface {
	Recommend(c recommend.Context) []model.Recommendation
}

// PathPlanner builds learning paths.
type PathPlanner interface {
	Plan(subjectID, topic string, sv model.SignalVector, now time.Time) (model.LearningPath, error)
}

// Deps are the collaborators of the default pipeline.
type Deps struct {
	Analyzer    StateAnalyzer
	Content     ContentGenerator
	Recommender Recommender
	Planner     PathPlanner
}

// DefaultSteps returns the five-step pipeline. Only state analysis is
// required. Nil collaborators make their step fail.
func DefaultSteps(d Deps) []Step {
	return []Step{
		{Name: model.StepStateAnalysis, Required: true, Run: analyzeStep(d.Analyzer)},
		{Name: model.StepContentGeneration, Run: contentStep(d.Content)},
		{Name: model.StepOutcomePrediction, Run: outcomeStep},
		{Name: model.StepRecommendation, Run: recommendStep(d.Recommender)},
		{Name: model.StepPathCreation, Run: pathStep(d.Planner)},
	}
}

func analyzeStep(a StateAnalyzer) func(context.Context, *State) error {
	return func(ctx context.Context, st *State) error {
		if a == nil {
			return fmt.Errorf("%w: no analyzer", ErrNoAnalysis)
		}
		res, err := a.AnalyzeState(ctx, st.Input.SubjectID, st.Input.Frame)
		if err != nil {
			return fmt.Errorf("analyze state: %w", err)
		}
		st.Analysis = &res
		est := res.Estimate
		st.Result.State = res.State
		st.Result.Risks = res.Risks
		st.Result.Estimate = &est
		st.Adaptation = recommend.Adapt(est.Signals(), st.Input.Format)
		return nil
	}
}

func contentStep(g ContentGenerator) func(context.Context, *State) error {
	return func(ctx context.Context, st *State) error {
		if g == nil {
			return fmt.Errorf("content generation: no generator")
		}
		if st.Analysis == nil {
			return ErrNoAnalysis
		}
		c, err := g.Generate(ctx, contentgen.Request{
			SubjectID:  st.Input.SubjectID,
			Topic:      st.Input.Topic,
			Profile:    st.Input.Profile,
			State:      st.Analysis.State,
			Adaptation: st.Adaptation,
		})
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		st.Result.Content = &c
		return nil
	}
}

func outcomeStep(_ context.Context, st *State) error {
	if st.Analysis == nil {
		return ErrNoAnalysis
	}
	a := st.Analysis
	p := recommend.PredictOutcome(a.Performance, a.Temporal.AttentionTrend, a.Estimate.Confidence())
	st.Result.Outcome = &p
	return nil
}

func recommendStep(r Recommender) func(context.Context, *State) error {
	return func(_ context.Context, st *State) error {
		if r == nil {
			return fmt.Errorf("recommendation: no recommender")
		}
		if st.Analysis == nil {
			return ErrNoAnalysis
		}
		c := recommend.FromEstimate(st.Analysis.State, st.Analysis.Risks, st.Analysis.Estimate)
		c.Content = st.Result.Content
		c.Outcome = st.Result.Outcome
		t := st.Analysis.Temporal
		c.Temporal = &t
		st.Result.Recommendations = r.Recommend(c)
		return nil
	}
}

func pathStep(p PathPlanner) func(context.Context, *State) error {
	return func(_ context.Context, st *State) error {
		if p == nil {
			return fmt.Errorf("path creation: no planner")
		}
		if st.Analysis == nil {
			return ErrNoAnalysis
		}
		path, err := p.Plan(st.Input.SubjectID, st.Input.Topic, st.Analysis.Estimate.Signals(), st.now())
		if err != nil {
			return fmt.Errorf("plan path: %w", err)
		}
		st.Result.Path = &path
		return nil
	}
}
