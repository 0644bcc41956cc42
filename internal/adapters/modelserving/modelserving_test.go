package modelserving_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/attune/internal/adapters/modelserving"
	"github.com/okian/attune/internal/domain/fusion"
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func features() *geometry.Features {
	ex := geometry.NewExtractor()
	f, err := ex.Extract(&model.LandmarkFrame{Width: 640, Height: 480, Points: geometry.SynthesizeIBUG68(geometry.DefaultFace())})
	if err != nil {
		panic(err)
	}
	return &f
}

func scoringServer(codec modelserving.Codec, seen *modelserving.ScoreRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = codec.Unmarshal(data, seen)
		}
		resp := modelserving.ScoreResponse{Model: "attn-v2", Scores: []modelserving.Score{
			{Metric: model.MetricAttention, Value: 0.8, Confidence: 0.9},
			{Metric: model.MetricEmotion, Distribution: map[string]float64{"happy": 3, "neutral": 1}, Confidence: 0.7},
		}}
		out, _ := codec.Marshal(resp)
		w.Header().Set("Content-Type", codec.ContentType())
		_, _ = w.Write(out)
	}))
}

func TestHTTPProvider(t *testing.T) {
	for _, codec := range []modelserving.Codec{modelserving.JSONCodec{}, modelserving.MsgPackCodec{}} {
		Convey("Given a healthy endpoint speaking "+codec.Name(), t, func() {
			var seen modelserving.ScoreRequest
			srv := scoringServer(codec, &seen)
			defer srv.Close()

			p := modelserving.NewHTTPProvider("attn", model.RolePrimary, srv.URL,
				modelserving.WithCodec(codec),
				modelserving.WithMetrics(model.MetricAttention, model.MetricEmotion))

			Convey("When estimating", func() {
				got := p.Estimate(context.Background(), fusion.Request{SubjectID: "s1", FrameID: "f1", Features: features()})

				Convey("Then scores become available estimates and features travel intact", func() {
					So(len(got), ShouldEqual, 2)
					So(got[0].Unavailable, ShouldBeFalse)
					So(got[0].Value, ShouldEqual, 0.8)
					So(got[0].Source, ShouldEqual, model.RolePrimary)
					So(got[1].Distribution["happy"], ShouldEqual, 0.75)
					So(seen.SubjectID, ShouldEqual, "s1")
					So(seen.Features, ShouldNotBeNil)
					So(seen.Features.MeanEAR, ShouldAlmostEqual, 0.3, 1e-9)
				})
			})
		})
	}

	Convey("Given failing endpoints", t, func() {
		Convey("When the endpoint answers 503", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer srv.Close()
			got := modelserving.NewHTTPProvider("m", model.RoleSecondary, srv.URL).Estimate(context.Background(), fusion.Request{})

			Convey("Then every metric is unavailable with the status as reason", func() {
				So(len(got), ShouldEqual, 4)
				for _, est := range got {
					So(est.Unavailable, ShouldBeTrue)
					So(est.Reason, ShouldEqual, "unexpected status: 503")
				}
			})
		})

		Convey("When the endpoint is too slow", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(time.Second):
				case <-r.Context().Done():
				}
			}))
			defer srv.Close()
			p := modelserving.NewHTTPProvider("m", model.RoleSecondary, srv.URL, modelserving.WithTimeout(20*time.Millisecond))
			got := p.Estimate(context.Background(), fusion.Request{})
			So(got[0].Reason, ShouldEqual, "timeout")
		})

		Convey("When the body does not decode", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			}))
			defer srv.Close()
			got := modelserving.NewHTTPProvider("m", model.RoleSecondary, srv.URL).Estimate(context.Background(), fusion.Request{})
			So(got[0].Reason, ShouldEqual, "decode error")
		})

		Convey("When nothing listens", func() {
			got := modelserving.NewHTTPProvider("m", model.RoleSecondary, "http://127.0.0.1:1").Estimate(context.Background(), fusion.Request{})
			So(got[0].Reason, ShouldEqual, "transport error")
		})
	})

	Convey("Given codec names", t, func() {
		c, err := modelserving.CodecByName("msgpack")
		So(err, ShouldBeNil)
		So(c.ContentType(), ShouldEqual, "application/msgpack")
		_, err = modelserving.CodecByName("xml")
		So(err, ShouldWrap, modelserving.ErrUnknownCodec)
	})
}

func TestSimulated(t *testing.T) {
	Convey("Given the simulated provider", t, func() {
		s := modelserving.NewSimulated(modelserving.WithSimulatedRole(model.RolePrimary))
		req := fusion.Request{FrameID: "f1", Features: features()}

		Convey("Then estimates are deterministic and tagged simulated", func() {
			a := s.Estimate(context.Background(), req)
			b := s.Estimate(context.Background(), req)
			So(a, ShouldResemble, b)
			So(len(a), ShouldEqual, len(s.Metrics()))
			for _, est := range a {
				So(est.Simulated, ShouldBeTrue)
				So(est.Source, ShouldEqual, model.RolePrimary)
			}
			So(a[0].Value, ShouldBeGreaterThan, 0.8)
		})

		Convey("Then missing features yield nothing", func() {
			So(s.Estimate(context.Background(), fusion.Request{}), ShouldBeEmpty)
		})

		Convey("Then simulated latency honours cancellation", func() {
			slow := modelserving.NewSimulated(modelserving.WithLatencyRange(time.Second, 2*time.Second))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			So(slow.Estimate(ctx, req), ShouldBeNil)
		})

		Convey("Then it plugs into an ensemble and makes fusion non-degraded", func() {
			e := fusion.NewEnsemble(fusion.WithProviders(s))
			est := fusion.NewScorer().Fuse(fusion.Input{Estimates: e.Collect(context.Background(), req), Completeness: 1})
			So(est.Degraded(), ShouldBeFalse)
			So(est.Simulated(), ShouldBeTrue)
		})
	})
}
