package service

import (
	"math"
	"time"

	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
)

// MetricView is one scalar metric as shown to callers, in percent.
type MetricView struct {
	Value   float64 `json:"value"`
	Quality string  `json:"quality"`
	Trend   string  `json:"trend,omitempty"`
}

// EmotionView is the dominant emotion and how sure we are of it.
type EmotionView struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Quality    string  `json:"quality"`
}

// Metrics is the headline block of a result.
type Metrics struct {
	Attention      MetricView           `json:"attention"`
	Confusion      MetricView           `json:"confusion"`
	Fatigue        MetricView           `json:"fatigue"`
	Engagement     MetricView           `json:"engagement"`
	EmotionalState EmotionView          `json:"emotional_state"`
	CognitiveState model.CognitiveState `json:"cognitive_state"`
}

// AdvancedMetrics carries temporal and confidence details.
type AdvancedMetrics struct {
	BlinkRate        float64  `json:"blink_rate"`
	EmotionStability float64  `json:"emotion_stability"`
	ConfidenceScore  float64  `json:"confidence_score"`
	Degraded         bool     `json:"degraded"`
	Simulated        bool     `json:"simulated,omitempty"`
	TemporalSamples  int      `json:"temporal_samples"`
	Provenance       []string `json:"provenance,omitempty"`
}

// GazeAnalysis combines this frame's gaze with the window pattern.
type GazeAnalysis struct {
	Direction      string  `json:"direction"`
	OnScreen       bool    `json:"on_screen"`
	Stability      float64 `json:"stability"`
	Exploration    float64 `json:"exploration"`
	AttentionFocus float64 `json:"attention_focus"`
	Pattern        string  `json:"pattern"`
	Saccades       int     `json:"saccade_count"`
	Fixations      int     `json:"fixation_count"`
	AvgFixation    float64 `json:"avg_fixation_duration"`
}

// EmotionAnalysis is the full emotion distribution and the dominant
// label after temporal smoothing.
type EmotionAnalysis struct {
	Dominant     string                  `json:"dominant"`
	Confidence   float64                 `json:"confidence"`
	Distribution map[string]float64      `json:"distribution"`
	Stability    float64                 `json:"stability"`
	Smoothed     history.SmoothedEmotion `json:"smoothed"`
}

// PerformanceMetrics reports readiness, stress and load in percent.
type PerformanceMetrics struct {
	LearningReadiness float64 `json:"learning_readiness"`
	Stress            float64 `json:"stress"`
	CognitiveLoad     float64 `json:"cognitive_load"`
	Quality           string  `json:"quality"`
}

// EnhancedAnalysis groups the supplementary analyses.
type EnhancedAnalysis struct {
	Gaze        GazeAnalysis       `json:"gaze_analysis"`
	Emotion     EmotionAnalysis    `json:"advanced_emotion"`
	Temporal    history.Temporal   `json:"temporal_analysis"`
	Performance PerformanceMetrics `json:"performance_metrics"`
	Head        *geometry.HeadPose `json:"head_pose,omitempty"`
}

// Result is what callers receive for one analyzed frame.
type Result struct {
	FrameID          string                 `json:"frame_id,omitempty"`
	SubjectID        string                 `json:"subject_id"`
	Timestamp        time.Time              `json:"timestamp"`
	Metrics          Metrics                `json:"metrics"`
	AdvancedMetrics  AdvancedMetrics        `json:"advanced_metrics"`
	EnhancedAnalysis EnhancedAnalysis       `json:"enhanced_analysis"`
	RiskFactors      []model.RiskFactor     `json:"risk_factors"`
	Recommendations  []model.Recommendation `json:"recommendations"`
	Source           string                 `json:"source"`

	estimate model.FusedEstimate
	perf     classifier.Performance
}

func percent(v float64) float64 { return math.Round(model.Clamp01(v)*1000) / 10 }

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

type resultParts struct {
	frame    *model.LandmarkFrame
	features *geometry.Features
	estimate model.FusedEstimate
	temporal history.Temporal
	smoothed history.SmoothedEmotion
	state    model.CognitiveState
	risks    []model.RiskFactor
	perf     classifier.Performance
	recs     []model.Recommendation
	trends   map[model.Metric]string
	now      time.Time
}

func buildResult(p resultParts) Result {
	sv := p.estimate.Signals()
	view := func(m model.Metric) MetricView {
		return MetricView{
			Value:   percent(sv.Get(m)),
			Quality: classifier.QualityLabel(p.estimate.MetricConfidence(m)),
			Trend:   p.trends[m],
		}
	}
	label, top := sv.DominantEmotion()
	emoConf := p.estimate.MetricConfidence(model.MetricEmotion)

	r := Result{
		FrameID:   p.frame.ID,
		SubjectID: p.frame.SubjectID,
		Timestamp: p.now,
		Metrics: Metrics{
			Attention:      view(model.MetricAttention),
			Confusion:      view(model.MetricConfusion),
			Fatigue:        view(model.MetricFatigue),
			Engagement:     view(model.MetricEngagement),
			EmotionalState: EmotionView{Label: label, Confidence: round(emoConf, 2), Quality: classifier.QualityLabel(emoConf)},
			CognitiveState: p.state,
		},
		AdvancedMetrics: AdvancedMetrics{
			BlinkRate:        round(p.temporal.BlinkRate, 2),
			EmotionStability: round(p.temporal.EmotionStability, 3),
			ConfidenceScore:  round(p.estimate.Confidence(), 3),
			Degraded:         p.estimate.Degraded(),
			Simulated:        p.estimate.Simulated(),
			TemporalSamples:  p.temporal.Samples,
			Provenance:       p.estimate.Provenance(),
		},
		EnhancedAnalysis: EnhancedAnalysis{
			Emotion: EmotionAnalysis{
				Dominant:     label,
				Confidence:   round(top, 3),
				Distribution: sv.Emotions,
				Stability:    round(p.temporal.EmotionStability, 3),
			},
			Temporal: p.temporal,
			Performance: PerformanceMetrics{
				LearningReadiness: percent(p.perf.Readiness),
				Stress:            percent(p.perf.Stress),
				CognitiveLoad:     percent(p.perf.CognitiveLoad),
				Quality:           classifier.QualityLabel(p.perf.Readiness),
			},
		},
		RiskFactors:     p.risks,
		Recommendations: p.recs,
		Source:          p.estimate.Source(),
		estimate:        p.estimate,
		perf:            p.perf,
	}
	r.EnhancedAnalysis.Emotion.Smoothed = p.smoothed
	r.EnhancedAnalysis.Emotion.Smoothed.Confidence = round(p.smoothed.Confidence, 3)
	r.EnhancedAnalysis.Gaze = GazeAnalysis{
		Stability:      round(p.temporal.GazeStability, 3),
		Exploration:    round(p.temporal.GazeExploration, 3),
		AttentionFocus: round(p.temporal.AttentionFocus, 3),
		Pattern:        p.temporal.GazePattern,
		Saccades:       p.temporal.Saccades,
		Fixations:      p.temporal.Fixations,
		AvgFixation:    round(p.temporal.AvgFixation, 3),
	}
	if p.features != nil {
		r.EnhancedAnalysis.Gaze.Direction = p.features.Gaze.Direction
		r.EnhancedAnalysis.Gaze.OnScreen = p.features.Gaze.OnScreen
		head := p.features.Head
		r.EnhancedAnalysis.Head = &head
	}
	if r.RiskFactors == nil {
		r.RiskFactors = []model.RiskFactor{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []model.Recommendation{}
	}
	return r
}
