// Package recommend turns a classified cognitive state into a ranked,
// deduplicated list of adaptation recommendations.
package recommend

import (
	"sort"

	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
)

// Context is everything a rule may look at. Content, Outcome and Temporal
// are optional.
type Context struct {
	State    model.CognitiveState
	Risks    []model.RiskFactor
	Signals  model.SignalVector
	Conf     float64
	Content  *model.Content
	Outcome  *model.OutcomePrediction
	Temporal *history.Temporal
}

// FromEstimate builds a Context around a fused estimate.
func FromEstimate(state model.CognitiveState, risks []model.RiskFactor, est model.FusedEstimate) Context {
	return Context{State: state, Risks: risks, Signals: est.Signals(), Conf: est.Confidence()}
}

// Rule is one independent recommendation module.
type Rule interface {
	Name() string
	Evaluate(c Context) []model.Recommendation
}

// Engine runs every rule and ranks the union.
type Engine struct {
	rules []Rule
	limit int
}

// New creates an engine with the default rules.
func New(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules(), limit: DefaultLimit}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the active rule names in evaluation order.
func (e *Engine) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Recommend evaluates all rules, drops repeated (type, message) pairs
// keeping the first, and sorts by priority then confidence, both
// descending, preserving rule order on ties.
func (e *Engine) Recommend(c Context) []model.Recommendation {
	seen := make(map[[2]string]struct{})
	var out []model.Recommendation
	for _, r := range e.rules {
		for _, rec := range r.Evaluate(c) {
			key := [2]string{rec.Type, rec.Message}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if rec.Source == "" {
				rec.Source = r.Name()
			}
			out = append(out, rec)
		}
	}
	Rank(out)
	if len(out) > e.limit {
		out = out[:e.limit]
	}
	return out
}

// Rank sorts recommendations in place by priority and confidence.
func Rank(recs []model.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return recs[i].Confidence > recs[j].Confidence
	})
}
