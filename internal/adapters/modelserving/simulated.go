package modelserving

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"github.com/okian/attune/internal/domain/fusion"
	"github.com/okian/attune/internal/domain/model"
)

// SimulatedID names the simulated provider.
const SimulatedID = "simulated"

// Simulated derives deterministic estimates from geometry so demos and
// tests exercise the ensemble without a live model. Every estimate is
// tagged Simulated.
type Simulated struct {
	role       model.Role
	minLatency time.Duration
	maxLatency time.Duration
}

// NewSimulated creates a secondary-role simulated provider with no latency.
func NewSimulated(opts ...SimOption) *Simulated {
	s := &Simulated{role: model.RoleSecondary}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulated) ID() string       { return SimulatedID }
func (s *Simulated) Role() model.Role { return s.role }
func (s *Simulated) Metrics() []model.Metric {
	return []model.Metric{model.MetricAttention, model.MetricConfusion, model.MetricFatigue, model.MetricEngagement, model.MetricEmotion}
}

// Estimate implements fusion.ModelProvider.
func (s *Simulated) Estimate(ctx context.Context, req fusion.Request) []model.ModelEstimate {
	if d := s.latency(req.FrameID); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
	f := req.Features
	if f == nil {
		return nil
	}

	openness := model.Clamp01(f.MeanEAR / 0.3)
	facing := model.Clamp01(1 - math.Abs(f.Head.Yaw)/45)
	attention := 0.5*openness + 0.5*facing
	if !f.Gaze.OnScreen {
		attention *= 0.7
	}
	fatigue := model.Clamp01((0.28 - f.MeanEAR) / 0.14)
	confusion := model.Clamp01((0.42-f.BrowRaise)/0.2) * 0.8
	engagement := model.Clamp01(0.6*attention + 0.4*(0.5+f.SmileIntensity/2))
	conf := 0.4 + 0.5*f.Completeness

	emotions := map[string]float64{
		model.EmotionNeutral: 1 - f.SmileIntensity,
		model.EmotionHappy:   f.SmileIntensity,
		model.EmotionAngry:   confusion / 2,
	}

	est := []model.ModelEstimate{
		model.Available(s.role, SimulatedID, model.MetricAttention, attention, conf),
		model.Available(s.role, SimulatedID, model.MetricConfusion, confusion, conf),
		model.Available(s.role, SimulatedID, model.MetricFatigue, fatigue, conf),
		model.Available(s.role, SimulatedID, model.MetricEngagement, engagement, conf),
		model.AvailableDistribution(s.role, SimulatedID, emotions, conf),
	}
	for i := range est {
		est[i] = est[i].AsSimulated()
	}
	return est
}

// latency spreads frames over the configured range by hashing the id.
func (s *Simulated) latency(frameID string) time.Duration {
	if s.maxLatency <= s.minLatency {
		return s.minLatency
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(frameID))
	span := uint64(s.maxLatency - s.minLatency)
	return s.minLatency + time.Duration(h.Sum64()%span)
}
