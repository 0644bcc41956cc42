package fusion

import (
	"sort"
	"time"

	"github.com/okian/attune/internal/domain/model"
)

// Completeness mixing for model-backed confidence.
const (
	modelShare   = 0.5
	featureShare = 0.3
	depthShare   = 0.2
	modelSlots   = 2
)

// Input is everything the scorer fuses for one frame.
type Input struct {
	Estimates       []model.ModelEstimate
	Heuristic       model.SignalVector
	Completeness    float64 // landmark completeness, 0 when extraction failed
	Depth           float64 // history fill ratio
	FeaturesMissing bool
}

// Scorer fuses estimates with fixed role weights, renormalized over the
// sources actually present. It is stateless and safe for concurrent use.
type Scorer struct {
	weights      map[model.Role]float64
	varianceGain float64
	now          func() time.Time
}

// NewScorer creates a scorer with the default 0.5/0.3/0.2 weights.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights: map[model.Role]float64{
			model.RolePrimary:   DefaultPrimaryWeight,
			model.RoleSecondary: DefaultSecondaryWeight,
			model.RoleHeuristic: DefaultHeuristicWeight,
		},
		varianceGain: DefaultVarianceGain,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weight returns the configured weight for role.
func (s *Scorer) Weight(role model.Role) float64 { return s.weights[role] }

type contribution struct {
	est    model.ModelEstimate
	weight float64
}

// Fuse combines the input into a FusedEstimate. With no available model
// estimate the heuristic is returned alone, degraded, at confidence 0.5.
func (s *Scorer) Fuse(in Input) model.FusedEstimate {
	byMetric := s.pick(in.Estimates)
	out := model.SignalVector{Confidence: make(map[model.Metric]float64, len(model.ScalarMetrics)+1)}
	prov := map[string]struct{}{string(model.RoleHeuristic) + ":" + HeuristicModelID: {}}
	simulated := false
	anyModel := false

	var confSum float64
	for _, m := range model.ScalarMetrics {
		contribs := byMetric[m]
		h := in.Heuristic.Get(m)
		if len(contribs) == 0 {
			out.Set(m, h)
			out.Confidence[m] = model.MinConfidence
			confSum += model.MinConfidence
			continue
		}
		anyModel = true
		values := []float64{h}
		weights := []float64{s.weights[model.RoleHeuristic]}
		for _, c := range contribs {
			values = append(values, c.est.Value)
			weights = append(weights, c.weight)
			prov[string(c.est.Source)+":"+c.est.ModelID] = struct{}{}
			simulated = simulated || c.est.Simulated
		}
		mean, variance := weightedStats(values, weights)
		out.Set(m, mean)
		c := s.confidence(len(contribs), in, variance)
		out.Confidence[m] = c
		confSum += c
	}

	emo, emoConf := s.fuseEmotions(in.Heuristic, byMetric[model.MetricEmotion])
	out.Emotions = emo
	out.Confidence[model.MetricEmotion] = emoConf
	for _, c := range byMetric[model.MetricEmotion] {
		anyModel = true
		prov[string(c.est.Source)+":"+c.est.ModelID] = struct{}{}
		simulated = simulated || c.est.Simulated
	}

	provenance := make([]string, 0, len(prov))
	for p := range prov {
		provenance = append(provenance, p)
	}
	sort.Strings(provenance)

	return model.NewFusedEstimate(model.FusedParams{
		Signals:    out,
		Confidence: confSum / float64(len(model.ScalarMetrics)),
		Degraded:   !anyModel || in.FeaturesMissing,
		Provenance: provenance,
		Simulated:  simulated,
		CreatedAt:  s.now(),
	})
}

// pick keeps, per metric and role, the most confident available estimate.
func (s *Scorer) pick(estimates []model.ModelEstimate) map[model.Metric][]contribution {
	best := make(map[model.Metric]map[model.Role]model.ModelEstimate)
	for _, e := range estimates {
		if e.Unavailable || e.Source == model.RoleHeuristic {
			continue
		}
		if _, ok := s.weights[e.Source]; !ok {
			continue
		}
		if best[e.Metric] == nil {
			best[e.Metric] = make(map[model.Role]model.ModelEstimate)
		}
		if cur, ok := best[e.Metric][e.Source]; !ok || e.Confidence > cur.Confidence {
			best[e.Metric][e.Source] = e
		}
	}
	out := make(map[model.Metric][]contribution, len(best))
	for m, roles := range best {
		for _, role := range []model.Role{model.RolePrimary, model.RoleSecondary} {
			if e, ok := roles[role]; ok {
				out[m] = append(out[m], contribution{est: e, weight: s.weights[role]})
			}
		}
	}
	return out
}

// confidence is 0.5 + 0.5*completeness*agreement, bounded to [0.5,1].
func (s *Scorer) confidence(models int, in Input, variance float64) float64 {
	completeness := modelShare*float64(models)/modelSlots +
		featureShare*model.Clamp01(in.Completeness) +
		depthShare*model.Clamp01(in.Depth)
	agreement := 1 / (1 + s.varianceGain*variance)
	return model.ClampRange(model.MinConfidence+0.5*completeness*agreement, model.MinConfidence, 1)
}

func (s *Scorer) fuseEmotions(h model.SignalVector, contribs []contribution) (map[string]float64, float64) {
	hConf := h.Confidence[model.MetricEmotion]
	if len(contribs) == 0 {
		return model.Normalize(h.Emotions), model.ClampRange(hConf, model.MinConfidence, 1)
	}
	acc := make(map[string]float64)
	var total, confSum float64
	add := func(dist map[string]float64, w, conf float64) {
		for k, v := range model.Normalize(dist) {
			acc[k] += w * v
		}
		total += w
		confSum += w * conf
	}
	add(h.Emotions, s.weights[model.RoleHeuristic], hConf)
	for _, c := range contribs {
		add(c.est.Distribution, c.weight, c.est.Confidence)
	}
	if total == 0 {
		return model.Normalize(h.Emotions), model.MinConfidence
	}
	return model.Normalize(acc), model.ClampRange(confSum/total, model.MinConfidence, 1)
}

func weightedStats(values, weights []float64) (float64, float64) {
	var sumW, mean float64
	for i, v := range values {
		mean += v * weights[i]
		sumW += weights[i]
	}
	if sumW == 0 {
		return 0, 0
	}
	mean /= sumW
	var variance float64
	for i, v := range values {
		variance += weights[i] * (v - mean) * (v - mean)
	}
	return mean, variance / sumW
}
