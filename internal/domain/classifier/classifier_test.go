package classifier_test

import (
	"testing"

	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sv(att, con, fat, eng float64) model.SignalVector {
	return model.SignalVector{Attention: att / 100, Confusion: con / 100, Fatigue: fat / 100, Engagement: eng / 100}
}

func riskTypes(risks []model.RiskFactor) []string {
	out := make([]string, len(risks))
	for i, r := range risks {
		out[i] = r.Type
	}
	return out
}

func TestState(t *testing.T) {
	Convey("Given the default classifier", t, func() {
		c := classifier.New()

		cases := []struct {
			name string
			in   model.SignalVector
			want model.CognitiveState
		}{
			{"alert and clear", sv(85, 10, 20, 80), model.StateOptimal},
			{"attentive but exhausted", sv(85, 10, 90, 80), model.StateStruggling},
			{"confused", sv(60, 75, 20, 60), model.StateStruggling},
			{"looking away", sv(35, 20, 10, 30), model.StateDisengaged},
			{"low engagement", sv(60, 20, 10, 35), model.StateDisengaged},
			{"in between", sv(60, 30, 40, 60), model.StateModerate},
			{"boundary attention 80 is not optimal", sv(80, 10, 20, 80), model.StateModerate},
		}
		for _, tc := range cases {
			Convey(tc.name, func() {
				So(c.State(tc.in), ShouldEqual, tc.want)
			})
		}
	})

	Convey("Given custom thresholds", t, func() {
		c := classifier.New(classifier.WithThresholds(classifier.Thresholds{OptimalAttention: 70}))

		Convey("Then only the overridden boundary moves", func() {
			So(c.State(sv(75, 10, 20, 80)), ShouldEqual, model.StateOptimal)
			So(c.Thresholds().OptimalConfusion, ShouldEqual, 20)
		})
	})
}

func TestRisks(t *testing.T) {
	Convey("Given the default classifier", t, func() {
		c := classifier.New()

		Convey("When fatigue is extreme", func() {
			risks := c.Risks(sv(85, 10, 90, 80))
			So(riskTypes(risks), ShouldResemble, []string{classifier.RiskBurnout})
			So(risks[0].Severity, ShouldEqual, model.SeverityHigh)
			So(risks[0].Probability, ShouldEqual, 0.8)
		})

		Convey("When fatigue is elevated but not extreme", func() {
			So(riskTypes(c.Risks(sv(85, 10, 65, 80))), ShouldResemble, []string{classifier.RiskFatigue})
		})

		Convey("When the subject is disengaged and drifting", func() {
			risks := c.Risks(sv(35, 20, 10, 25))
			So(riskTypes(risks), ShouldResemble, []string{classifier.RiskDisengagement, classifier.RiskAttentionDrift})
		})

		Convey("When confusion is high and the face reads angry", func() {
			in := sv(60, 80, 10, 60)
			in.Emotions = map[string]float64{model.EmotionAngry: 0.6, model.EmotionNeutral: 0.4}
			risks := c.Risks(in)
			So(riskTypes(risks), ShouldResemble, []string{classifier.RiskCognitiveOverload, classifier.RiskFrustration})
		})

		Convey("When a negative emotion is below the probability floor", func() {
			in := sv(60, 20, 10, 60)
			in.Emotions = map[string]float64{model.EmotionSad: 0.45, model.EmotionNeutral: 0.4, model.EmotionHappy: 0.15}
			So(c.Risks(in), ShouldBeEmpty)
		})

		Convey("When everything is fine", func() {
			state, risks := c.Classify(sv(90, 5, 5, 90))
			So(state, ShouldEqual, model.StateOptimal)
			So(risks, ShouldBeEmpty)
		})
	})
}

func TestPerformance(t *testing.T) {
	Convey("Given derived performance indicators", t, func() {
		Convey("A calm, clear subject is ready", func() {
			p := classifier.Evaluate(sv(90, 0, 0, 90), 1)
			So(p.Readiness, ShouldEqual, 1)
			So(p.Stress, ShouldEqual, 0)
		})

		Convey("Confusion and instability raise stress and lower readiness", func() {
			p := classifier.Evaluate(sv(60, 50, 50, 60), 0.5)
			So(p.CognitiveLoad, ShouldEqual, 0.5)
			So(p.Stress, ShouldAlmostEqual, 0.5, 1e-9)
			So(p.Readiness, ShouldAlmostEqual, 1-(0.25+0.15+0.1), 1e-9)
		})

		Convey("Quality labels follow the bands", func() {
			for v, want := range map[float64]string{
				0.95: "Excellent", 0.85: "Very Good", 0.7: "Good", 0.6: "Fair", 0.4: "Poor", 0.1: "Very Low",
			} {
				So(classifier.QualityLabel(v), ShouldEqual, want)
			}
		})
	})
}
