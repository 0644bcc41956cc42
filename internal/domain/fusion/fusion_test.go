package fusion_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/okian/attune/internal/domain/fusion"
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func heuristicVector(v float64) model.SignalVector {
	return model.SignalVector{
		Attention: v, Confusion: v, Fatigue: v, Engagement: v,
		Emotions:   map[string]float64{model.EmotionNeutral: 1},
		Confidence: map[model.Metric]float64{model.MetricEmotion: 0.6},
	}
}

func TestFuseWithoutModels(t *testing.T) {
	Convey("Given no model estimates", t, func() {
		s := fusion.NewScorer()
		h := heuristicVector(0.3)

		Convey("When fusing", func() {
			f := s.Fuse(fusion.Input{Heuristic: h, Completeness: 1, Depth: 1})

			Convey("Then the heuristic is returned alone with confidence 0.5 and degraded", func() {
				So(f.Confidence(), ShouldEqual, 0.5)
				So(f.Degraded(), ShouldBeTrue)
				So(f.Value(model.MetricAttention), ShouldEqual, 0.3)
				So(f.Provenance(), ShouldResemble, []string{"heuristic:geometry"})
			})
		})

		Convey("When every estimate is unavailable", func() {
			f := s.Fuse(fusion.Input{
				Heuristic: h,
				Estimates: []model.ModelEstimate{
					model.Unavailable(model.RolePrimary, "p", model.MetricAttention, "timeout"),
					model.Unavailable(model.RoleSecondary, "s", model.MetricEmotion, "status 503"),
				},
			})

			Convey("Then it behaves as if none were given", func() {
				So(f.Confidence(), ShouldEqual, 0.5)
				So(f.Degraded(), ShouldBeTrue)
			})
		})
	})
}

func TestFuseWeights(t *testing.T) {
	Convey("Given a primary, a secondary and the heuristic", t, func() {
		s := fusion.NewScorer()
		h := heuristicVector(0.2)
		primary := model.Available(model.RolePrimary, "attn-v2", model.MetricAttention, 0.8, 0.9)
		secondary := model.Available(model.RoleSecondary, "attn-lite", model.MetricAttention, 0.6, 0.7)

		Convey("When all three contribute", func() {
			f := s.Fuse(fusion.Input{Heuristic: h, Estimates: []model.ModelEstimate{primary, secondary}, Completeness: 1})

			Convey("Then weights 0.5/0.3/0.2 apply", func() {
				So(f.Value(model.MetricAttention), ShouldAlmostEqual, 0.62, 1e-9)
				So(f.Degraded(), ShouldBeFalse)
				want := []string{"heuristic:geometry", "primary:attn-v2", "secondary:attn-lite"}
				So(cmp.Diff(want, f.Provenance()), ShouldBeEmpty)
			})

			Convey("Then metrics without model input keep the heuristic value at the floor", func() {
				So(f.Value(model.MetricFatigue), ShouldEqual, 0.2)
				So(f.MetricConfidence(model.MetricFatigue), ShouldEqual, 0.5)
				So(f.MetricConfidence(model.MetricAttention), ShouldBeGreaterThan, 0.5)
			})
		})

		Convey("When the secondary is missing", func() {
			f := s.Fuse(fusion.Input{Heuristic: h, Estimates: []model.ModelEstimate{primary}})

			Convey("Then the remaining weights are renormalized", func() {
				So(f.Value(model.MetricAttention), ShouldAlmostEqual, (0.5*0.8+0.2*0.2)/0.7, 1e-9)
			})
		})

		Convey("When two estimates share a role", func() {
			weaker := model.Available(model.RolePrimary, "attn-old", model.MetricAttention, 0.0, 0.1)
			f := s.Fuse(fusion.Input{Heuristic: h, Estimates: []model.ModelEstimate{weaker, primary}})

			Convey("Then the more confident one wins the slot", func() {
				So(f.Value(model.MetricAttention), ShouldAlmostEqual, (0.5*0.8+0.2*0.2)/0.7, 1e-9)
			})
		})

		Convey("When custom weights are configured", func() {
			custom := fusion.NewScorer(fusion.WithWeights(1, 1, 1))
			f := custom.Fuse(fusion.Input{Heuristic: h, Estimates: []model.ModelEstimate{primary, secondary}})
			So(f.Value(model.MetricAttention), ShouldAlmostEqual, (0.8+0.6+0.2)/3, 1e-9)
			So(custom.Weight(model.RolePrimary), ShouldEqual, 1)
		})

		Convey("When a simulated estimate contributes", func() {
			f := s.Fuse(fusion.Input{Heuristic: h, Estimates: []model.ModelEstimate{primary.AsSimulated()}})
			So(f.Simulated(), ShouldBeTrue)
		})
	})
}

func TestFuseConfidenceBounds(t *testing.T) {
	Convey("Given many random inputs", t, func() {
		s := fusion.NewScorer()
		rng := rand.New(rand.NewSource(7))
		roles := []model.Role{model.RolePrimary, model.RoleSecondary}

		Convey("Then confidence always stays within [0.5,1]", func() {
			for range 500 {
				var ests []model.ModelEstimate
				for _, m := range model.ScalarMetrics {
					for _, r := range roles {
						switch rng.Intn(3) {
						case 0:
							ests = append(ests, model.Available(r, string(r), m, rng.Float64()*1.4-0.2, rng.Float64()))
						case 1:
							ests = append(ests, model.Unavailable(r, string(r), m, "down"))
						}
					}
				}
				f := s.Fuse(fusion.Input{
					Heuristic:    heuristicVector(rng.Float64()),
					Estimates:    ests,
					Completeness: rng.Float64(),
					Depth:        rng.Float64(),
				})
				So(f.Confidence(), ShouldBeBetweenOrEqual, 0.5, 1.0)
				for _, m := range model.ScalarMetrics {
					So(f.Value(m), ShouldBeBetweenOrEqual, 0.0, 1.0)
				}
			}
		})
	})

	Convey("Given agreeing and disagreeing sources", t, func() {
		s := fusion.NewScorer()
		agree := s.Fuse(fusion.Input{
			Heuristic: heuristicVector(0.5),
			Estimates: []model.ModelEstimate{
				model.Available(model.RolePrimary, "a", model.MetricAttention, 0.5, 1),
				model.Available(model.RoleSecondary, "b", model.MetricAttention, 0.5, 1),
			},
			Completeness: 1,
		})
		disagree := s.Fuse(fusion.Input{
			Heuristic: heuristicVector(0.5),
			Estimates: []model.ModelEstimate{
				model.Available(model.RolePrimary, "a", model.MetricAttention, 1, 1),
				model.Available(model.RoleSecondary, "b", model.MetricAttention, 0, 1),
			},
			Completeness: 1,
		})

		Convey("Then disagreement lowers confidence", func() {
			So(agree.MetricConfidence(model.MetricAttention), ShouldBeGreaterThan, disagree.MetricConfidence(model.MetricAttention))
		})
	})
}

func TestFuseEmotions(t *testing.T) {
	Convey("Given an emotion model that is sure the subject is happy", t, func() {
		s := fusion.NewScorer()
		est := model.AvailableDistribution(model.RolePrimary, "fer", map[string]float64{"happy": 0.9, "neutral": 0.1}, 0.9)
		f := s.Fuse(fusion.Input{Heuristic: heuristicVector(0.5), Estimates: []model.ModelEstimate{est}})

		Convey("Then the fused distribution leans happy and sums to one", func() {
			e := f.Emotions()
			So(e["happy"], ShouldAlmostEqual, 0.5*0.9/0.7, 1e-9)
			var sum float64
			for _, v := range e {
				sum += v
			}
			So(sum, ShouldAlmostEqual, 1, 1e-9)
			So(f.Degraded(), ShouldBeFalse)
		})
	})
}

func TestHeuristic(t *testing.T) {
	Convey("Given the heuristic", t, func() {
		ex := geometry.NewExtractor()
		extract := func(p geometry.FaceParams) *geometry.Features {
			feat, err := ex.Extract(&model.LandmarkFrame{Width: 640, Height: 480, Points: geometry.SynthesizeIBUG68(p)})
			So(err, ShouldBeNil)
			return &feat
		}

		Convey("When features are missing", func() {
			sv := fusion.Heuristic(nil, history.Temporal{})
			So(sv.Attention, ShouldEqual, 0.5)
			So(sv.Emotions[model.EmotionNeutral], ShouldEqual, 1)
		})

		Convey("When the face is alert and centred", func() {
			sv := fusion.Heuristic(extract(geometry.DefaultFace()), history.Temporal{})

			Convey("Then attention and engagement are high, fatigue and confusion low", func() {
				So(sv.Attention, ShouldBeGreaterThan, 0.8)
				So(sv.Engagement, ShouldBeGreaterThan, 0.8)
				So(sv.Fatigue, ShouldBeLessThan, 0.3)
				So(sv.Confusion, ShouldBeLessThan, 0.2)
				label, _ := sv.DominantEmotion()
				So(label, ShouldEqual, model.EmotionNeutral)
			})
		})

		Convey("When the eyes are almost shut", func() {
			p := geometry.DefaultFace()
			p.EyeOpenness = 0.1
			sv := fusion.Heuristic(extract(p), history.Temporal{})
			So(sv.Fatigue, ShouldEqual, 0.8)
			So(sv.Attention, ShouldBeLessThan, 0.7)
		})

		Convey("When PERCLOS over a long window is high", func() {
			p := geometry.DefaultFace()
			p.EyeOpenness = 0.17
			sv := fusion.Heuristic(extract(p), history.Temporal{Samples: 60, Capacity: 120, Perclos: 0.4})
			So(sv.Fatigue, ShouldEqual, 1)
		})

		Convey("When brows are lowered and emotions unstable", func() {
			p := geometry.DefaultFace()
			p.BrowLift = -0.15
			sv := fusion.Heuristic(extract(p), history.Temporal{Samples: 10, Capacity: 120, EmotionStability: 0.3})
			So(sv.Confusion, ShouldBeGreaterThan, 0.6)
		})

		Convey("When the subject smiles", func() {
			p := geometry.DefaultFace()
			p.Smile = 0.2
			sv := fusion.Heuristic(extract(p), history.Temporal{})
			label, _ := sv.DominantEmotion()
			So(label, ShouldEqual, model.EmotionHappy)
		})
	})
}

type stubProvider struct {
	id      string
	role    model.Role
	metrics []model.Metric
	delay   time.Duration
	out     []model.ModelEstimate
	panics  bool
}

func (p *stubProvider) ID() string              { return p.id }
func (p *stubProvider) Role() model.Role        { return p.role }
func (p *stubProvider) Metrics() []model.Metric { return p.metrics }
func (p *stubProvider) Estimate(ctx context.Context, _ fusion.Request) []model.ModelEstimate {
	if p.panics {
		panic("provider bug")
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil
		}
	}
	return p.out
}

func TestEnsemble(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given a fast, a partial and a slow provider", t, func() {
		fast := &stubProvider{
			id: "fast", role: model.RolePrimary,
			metrics: []model.Metric{model.MetricAttention},
			out:     []model.ModelEstimate{model.Available(model.RoleSecondary, "spoofed", model.MetricAttention, 0.9, 0.9)},
		}
		partial := &stubProvider{
			id: "partial", role: model.RoleSecondary,
			metrics: []model.Metric{model.MetricAttention, model.MetricFatigue},
			out:     []model.ModelEstimate{model.Available(model.RoleSecondary, "partial", model.MetricAttention, 0.4, 0.5)},
		}
		slow := &stubProvider{
			id: "slow", role: model.RoleSecondary,
			metrics: []model.Metric{model.MetricEmotion},
			delay:   time.Second,
		}
		e := fusion.NewEnsemble(
			fusion.WithProviders(fast, partial, slow),
			fusion.WithProviderTimeout(30*time.Millisecond),
		)

		Convey("When collecting", func() {
			got := e.Collect(context.Background(), fusion.Request{SubjectID: "s"})
			byKey := map[string]model.ModelEstimate{}
			for _, est := range got {
				byKey[est.ModelID+"/"+string(est.Metric)] = est
			}

			Convey("Then every declared metric is present or explicitly unavailable", func() {
				So(len(got), ShouldEqual, 4)
				So(byKey["fast/attention"].Unavailable, ShouldBeFalse)
				So(byKey["fast/attention"].Source, ShouldEqual, model.RolePrimary)
				So(byKey["partial/fatigue"].Unavailable, ShouldBeTrue)
				So(byKey["partial/fatigue"].Reason, ShouldEqual, "no estimate")
				So(byKey["slow/emotion"].Unavailable, ShouldBeTrue)
				So(byKey["slow/emotion"].Reason, ShouldEqual, "timeout")
			})
		})

		Convey("When a provider panics", func() {
			bad := &stubProvider{id: "bad", role: model.RolePrimary, metrics: []model.Metric{model.MetricFatigue}, panics: true}
			got := fusion.NewEnsemble(fusion.WithProviders(bad)).Collect(context.Background(), fusion.Request{SubjectID: "s"})
			So(got, ShouldHaveLength, 1)
			So(got[0].Unavailable, ShouldBeTrue)
			So(got[0].Reason, ShouldEqual, "panic")
		})

		Convey("When there are no providers", func() {
			So(fusion.NewEnsemble().Collect(context.Background(), fusion.Request{}), ShouldBeNil)
			So(e.Providers(), ShouldResemble, []string{"fast", "partial", "slow"})
		})
	})
}
