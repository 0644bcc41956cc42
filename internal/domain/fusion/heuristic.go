// Package fusion combines model estimates and a geometric heuristic into
// one confidence-tagged estimate per frame.
package fusion

import (
	"math"

	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
)

// HeuristicModelID names the built-in geometric source in provenance.
const HeuristicModelID = "geometry"

// Heuristic thresholds. EAR bands and PERCLOS scaling follow the usual
// drowsiness literature; the rest are tuned on synthetic faces.
const (
	earOpen         = 0.25
	earNormal       = 0.2
	earHeavy        = 0.15
	earDrowsy       = 0.18
	perclosMinFrame = 20
	perclosGain     = 2.0
	drowsyEARBoost  = 0.2
	headDropBoost   = 0.15
	headDropPitch   = 10.0
	yawVarianceNorm = 25.0
	minYawSamples   = 5
	neutralBrow     = 0.4
	browSpan        = 0.15
	asymmetryGain   = 4.0
	engagementAttn  = 0.7
	engagementEmo   = 0.3
	neutralBaseline = 0.5
	maxEmotionConf  = 0.95
	emotionConfLift = 0.1
)

// Heuristic derives a signal vector from geometry and the subject's recent
// window. It never fails: nil features yield the neutral vector.
func Heuristic(feat *geometry.Features, t history.Temporal) model.SignalVector {
	if feat == nil {
		return neutral(t)
	}
	sv := model.SignalVector{}
	sv.Attention = attention(feat, t)
	sv.Fatigue = fatigue(feat, t)
	sv.Confusion = confusion(feat, t)
	sv.Emotions = emotions(feat)
	_, top := (model.SignalVector{Emotions: sv.Emotions}).DominantEmotion()
	emoConf := math.Min(maxEmotionConf, top+emotionConfLift)
	sv.Engagement = engagementAttn*sv.Attention + engagementEmo*emoConf

	conf := HeuristicConfidence(feat.Completeness, t.Depth())
	sv.Confidence = map[model.Metric]float64{
		model.MetricAttention:  conf,
		model.MetricConfusion:  conf,
		model.MetricFatigue:    conf,
		model.MetricEngagement: conf,
		model.MetricEmotion:    emoConf,
	}
	return sv.Clamp()
}

// HeuristicConfidence grows with landmark completeness and history depth.
func HeuristicConfidence(completeness, depth float64) float64 {
	return model.Clamp01(0.3 + 0.3*model.Clamp01(completeness) + 0.3*model.Clamp01(depth))
}

func neutral(t history.Temporal) model.SignalVector {
	conf := HeuristicConfidence(0, t.Depth())
	return model.SignalVector{
		Attention:  neutralBaseline,
		Confusion:  neutralBaseline,
		Fatigue:    neutralBaseline,
		Engagement: neutralBaseline,
		Emotions:   map[string]float64{model.EmotionNeutral: 1},
		Confidence: map[model.Metric]float64{
			model.MetricAttention:  conf,
			model.MetricConfusion:  conf,
			model.MetricFatigue:    conf,
			model.MetricEngagement: conf,
			model.MetricEmotion:    conf,
		},
	}
}

func attention(f *geometry.Features, t history.Temporal) float64 {
	var factors []float64
	if f.FaceArea > 0 {
		switch {
		case f.FaceArea > 0.1:
			factors = append(factors, 0.8)
		case f.FaceArea > 0.05:
			factors = append(factors, 0.6)
		default:
			factors = append(factors, 0.3)
		}
	}
	switch {
	case f.MeanEAR > earOpen:
		factors = append(factors, 0.9)
	case f.MeanEAR > earNormal:
		factors = append(factors, 0.7)
	case f.MeanEAR > earHeavy:
		factors = append(factors, 0.4)
	default:
		factors = append(factors, 0.1)
	}
	if f.Gaze.OnScreen {
		factors = append(factors, 0.8)
	} else {
		factors = append(factors, 0.5)
	}
	if f.Head.FacingCamera {
		factors = append(factors, 0.85)
	} else {
		factors = append(factors, 0.4)
	}
	if t.Samples >= minYawSamples {
		factors = append(factors, 1/(1+t.YawVariance/yawVarianceNorm))
	}
	var sum float64
	for _, v := range factors {
		sum += v
	}
	return sum / float64(len(factors))
}

// fatigue uses PERCLOS once enough frames exist, otherwise banded EAR.
func fatigue(f *geometry.Features, t history.Temporal) float64 {
	if t.Samples < perclosMinFrame {
		switch {
		case f.MeanEAR < earHeavy:
			return 0.8
		case f.MeanEAR < earNormal:
			return 0.4
		default:
			return 0.1
		}
	}
	v := t.Perclos * perclosGain
	if f.MeanEAR < earDrowsy {
		v += drowsyEARBoost
	}
	if f.Head.Pitch > headDropPitch {
		v += headDropBoost
	}
	return model.Clamp01(v)
}

func confusion(f *geometry.Features, t history.Temporal) float64 {
	furrow := model.Clamp01((neutralBrow - f.BrowRaise) / browSpan)
	asym := model.Clamp01((1 - f.Symmetry) * asymmetryGain)
	var instability float64
	if t.Samples > 0 {
		instability = model.Clamp01(1 - t.EmotionStability)
	}
	return 0.45*furrow + 0.25*asym + 0.3*instability
}

// emotions scores each label from facial action proxies and normalizes.
func emotions(f *geometry.Features) map[string]float64 {
	furrow := model.Clamp01((neutralBrow - f.BrowRaise) / browSpan)
	raise := model.Clamp01((f.BrowRaise - neutralBrow) / browSpan)
	open := model.Clamp01(f.MouthOpenness * 1.5)
	droop := model.Clamp01((earOpen - f.MeanEAR) / 0.1)
	smile := f.SmileIntensity

	scores := map[string]float64{
		model.EmotionNeutral:   neutralBaseline,
		model.EmotionHappy:     smile,
		model.EmotionSurprised: open * raise,
		model.EmotionAngry:     furrow * (1 - smile),
		model.EmotionSad:       droop * (1 - smile) * (1 - open),
		model.EmotionFearful:   raise * (1 - open) * (1 - smile) * 0.5,
		model.EmotionDisgusted: furrow * open * 0.5,
	}
	return model.Normalize(scores)
}
