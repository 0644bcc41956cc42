package history_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func estimate(attention float64, emotion string) model.FusedEstimate {
	return model.NewFusedEstimate(model.FusedParams{
		Signals: model.SignalVector{
			Attention: attention,
			Emotions:  map[string]float64{emotion: 1},
		},
		Confidence: 0.7,
	})
}

func TestRing(t *testing.T) {
	Convey("Given a ring of capacity N", t, func() {
		const n = 8
		r := history.NewRing[int](n)

		Convey("When N+5 values are pushed", func() {
			evictions := 0
			for i := range n + 5 {
				if _, ev := r.Push(i); ev {
					evictions++
				}
			}

			Convey("Then exactly N remain in FIFO order with the first 5 evicted", func() {
				So(r.Len(), ShouldEqual, n)
				So(evictions, ShouldEqual, 5)
				want := []int{5, 6, 7, 8, 9, 10, 11, 12}
				So(cmp.Diff(want, r.Items()), ShouldBeEmpty)
			})

			Convey("Then Last returns the newest entries oldest first", func() {
				So(cmp.Diff([]int{10, 11, 12}, r.Last(3)), ShouldBeEmpty)
				So(r.Last(0), ShouldBeNil)
				So(len(r.Last(100)), ShouldEqual, n)
			})
		})

		Convey("When the ring is partly filled", func() {
			r.Push(1)
			r.Push(2)
			So(cmp.Diff([]int{1, 2}, r.Items()), ShouldBeEmpty)
			So(r.Cap(), ShouldEqual, n)
		})
	})

	Convey("Given a non-positive capacity", t, func() {
		r := history.NewRing[string](0)
		r.Push("a")
		r.Push("b")
		So(r.Items(), ShouldResemble, []string{"b"})
	})
}

func TestStore(t *testing.T) {
	Convey("Given a store with a small window", t, func() {
		ctx := context.Background()
		s := history.NewStore(history.WithCapacity(10))

		Convey("When one subject receives concurrent appends", func() {
			var wg sync.WaitGroup
			for i := range 100 {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					s.Append(ctx, "alice", history.Sample{Estimate: estimate(float64(i)/100, "neutral")})
				}(i)
			}
			wg.Wait()

			Convey("Then the window never exceeds capacity", func() {
				So(s.Len(ctx, "alice"), ShouldEqual, 10)
				So(s.Subjects(), ShouldEqual, 1)
			})
		})

		Convey("When subjects are independent", func() {
			s.Append(ctx, "a", history.Sample{Estimate: estimate(0.1, "happy")})
			s.Append(ctx, "b", history.Sample{Estimate: estimate(0.2, "sad")})
			s.Delete(ctx, "a")

			So(s.Len(ctx, "a"), ShouldEqual, 0)
			So(s.Len(ctx, "b"), ShouldEqual, 1)
			So(s.Snapshot(ctx, "missing"), ShouldBeNil)
		})
	})

	Convey("Given a store with a controllable clock", t, func() {
		ctx := context.Background()
		now := time.Unix(1_700_000_000, 0)
		s := history.NewStore(
			history.WithIdleTTL(time.Minute),
			history.WithClock(func() time.Time { return now }),
		)
		s.Append(ctx, "old", history.Sample{Estimate: estimate(0.5, "neutral")})
		now = now.Add(2 * time.Minute)
		s.Append(ctx, "fresh", history.Sample{Estimate: estimate(0.5, "neutral")})

		Convey("When pruning", func() {
			removed := s.Prune(ctx)

			Convey("Then only idle subjects are dropped", func() {
				So(removed, ShouldEqual, 1)
				So(s.Len(ctx, "old"), ShouldEqual, 0)
				So(s.Len(ctx, "fresh"), ShouldEqual, 1)
			})
		})
	})
}

func TestTrend(t *testing.T) {
	Convey("Given a subject history", t, func() {
		ctx := context.Background()
		s := history.NewStore()
		push := func(vals ...float64) {
			for _, v := range vals {
				s.Append(ctx, "s", history.Sample{Estimate: estimate(v, "neutral")})
			}
		}

		Convey("When fewer than 2k samples exist", func() {
			push(0.1, 0.2, 0.3)
			res := s.Trend(ctx, "s", model.MetricAttention, 2)
			So(res.Direction, ShouldEqual, history.TrendInsufficientData)
			So(res.Samples, ShouldEqual, 3)
		})

		Convey("When attention rises", func() {
			push(0.9, 0.2, 0.2, 0.6, 0.6)
			res := s.Trend(ctx, "s", model.MetricAttention, 2)
			So(res.Direction, ShouldEqual, history.TrendIncreasing)
			So(res.Delta, ShouldAlmostEqual, 0.4, 1e-9)
		})

		Convey("When attention falls", func() {
			push(0.8, 0.8, 0.3, 0.3)
			So(s.Trend(ctx, "s", model.MetricAttention, 2).Direction, ShouldEqual, history.TrendDecreasing)
		})

		Convey("When attention barely moves", func() {
			push(0.50, 0.52, 0.53, 0.51)
			So(s.Trend(ctx, "s", model.MetricAttention, 2).Direction, ShouldEqual, history.TrendStable)
		})
	})
}

func TestTemporal(t *testing.T) {
	Convey("Given samples with blinks, emotions and gaze", t, func() {
		var samples []history.Sample
		for i := range 20 {
			emotion := "happy"
			if i >= 17 {
				emotion = "sad"
			}
			samples = append(samples, history.Sample{
				Estimate:      estimate(0.7, emotion),
				HasFeatures:   true,
				Blink:         i%5 == 0 || i%5 == 1,
				Yaw:           float64(i % 2),
				GazeDirection: "center",
				OnScreen:      true,
			})
		}

		tp := history.TemporalOf(samples, history.DefaultStableBand)

		Convey("Then blink onsets and PERCLOS are counted", func() {
			So(tp.BlinkRate, ShouldEqual, 4)
			So(tp.Perclos, ShouldAlmostEqual, 0.4, 1e-9)
		})

		Convey("Then emotion stability is the share of the dominant label in the last 10", func() {
			So(tp.EmotionStability, ShouldAlmostEqual, 0.7, 1e-9)
		})

		Convey("Then steady on-screen gaze is focused", func() {
			So(tp.GazePattern, ShouldEqual, history.GazeFocused)
			So(tp.GazeStability, ShouldEqual, 1)
			So(tp.YawVariance, ShouldAlmostEqual, 0.25, 1e-9)
			So(tp.AttentionTrend, ShouldEqual, history.TrendStable)
		})
	})

	Convey("Given gaze jumping across every direction", t, func() {
		dirs := []string{"center", "left", "right", "up", "down"}
		var samples []history.Sample
		for i := range 10 {
			samples = append(samples, history.Sample{
				Estimate:      estimate(0.5, "neutral"),
				HasFeatures:   true,
				GazeDX:        float64((i%2)*2-1) * 30,
				GazeDirection: dirs[i%len(dirs)],
			})
		}
		tp := history.TemporalOf(samples, history.DefaultStableBand)

		Convey("Then the pattern is exploratory", func() {
			So(tp.GazeExploration, ShouldEqual, 1)
			So(tp.GazePattern, ShouldEqual, history.GazeExploratory)
		})
	})

	Convey("Given gaze that holds, jumps, holds and jumps back", t, func() {
		start := time.Unix(1_700_000_000, 0)
		offsets := []float64{0, 0, 0, 0, 15, 15, 15, 15, 0, 0}
		var samples []history.Sample
		for i, dx := range offsets {
			samples = append(samples, history.Sample{
				Estimate:      estimate(0.6, "neutral"),
				At:            start.Add(time.Duration(i) * 100 * time.Millisecond),
				HasFeatures:   true,
				GazeDX:        dx,
				GazeDirection: "center",
			})
		}
		tp := history.TemporalOf(samples, history.DefaultStableBand)

		Convey("Then each jump is a saccade and each long hold a fixation", func() {
			So(tp.Saccades, ShouldEqual, 2)
			So(tp.Fixations, ShouldEqual, 2)
			So(tp.AvgFixation, ShouldAlmostEqual, 0.3, 1e-9)
		})

		Convey("Then attention focus is the share of samples near center", func() {
			So(tp.AttentionFocus, ShouldAlmostEqual, 0.6, 1e-9)
		})
	})

	Convey("Given fewer gaze samples than the pattern minimum", t, func() {
		var samples []history.Sample
		for i := range 9 {
			samples = append(samples, history.Sample{
				Estimate:    estimate(0.6, "neutral"),
				HasFeatures: true,
				GazeDX:      float64(i%2) * 30,
			})
		}
		tp := history.TemporalOf(samples, history.DefaultStableBand)

		Convey("Then the pattern is neutral but saccades are still counted", func() {
			So(tp.GazePattern, ShouldEqual, history.GazeInsufficientData)
			So(tp.GazeStability, ShouldEqual, 0.5)
			So(tp.AttentionFocus, ShouldEqual, 0.5)
			So(tp.Saccades, ShouldEqual, 8)
			So(tp.Fixations, ShouldEqual, 0)
		})
	})

	Convey("Given too few samples", t, func() {
		tp := history.TemporalOf(nil, history.DefaultStableBand)
		So(tp.GazePattern, ShouldEqual, history.GazeInsufficientData)
		So(tp.EmotionStability, ShouldEqual, 1)
		So(tp.Saccades, ShouldEqual, 0)
		So(tp.Depth(), ShouldEqual, 0)
	})

	Convey("Given a store-backed window", t, func() {
		ctx := context.Background()
		s := history.NewStore(history.WithCapacity(4))
		for i := range 2 {
			s.Append(ctx, "x", history.Sample{Estimate: estimate(0.5, fmt.Sprint("e", i))})
		}
		So(s.Temporal(ctx, "x").Depth(), ShouldEqual, 0.5)
	})
}

func TestSmoothEmotion(t *testing.T) {
	happy := func(n int) []history.Sample {
		out := make([]history.Sample, n)
		for i := range out {
			out[i] = history.Sample{Estimate: estimate(0.6, "happy")}
		}
		return out
	}

	Convey("Given a steadily happy window", t, func() {
		prior := happy(5)

		Convey("When the current frame is weakly sad", func() {
			got := history.SmoothEmotion(prior, "sad", 0.2)

			Convey("Then the window outweighs it", func() {
				So(got.Smoothed, ShouldBeTrue)
				So(got.Label, ShouldEqual, "happy")
				So(got.Confidence, ShouldAlmostEqual, 0.18, 1e-9)
			})
		})

		Convey("When the current frame is strongly sad", func() {
			got := history.SmoothEmotion(prior, "sad", 0.9)

			Convey("Then the current label wins", func() {
				So(got.Label, ShouldEqual, "sad")
				So(got.Confidence, ShouldAlmostEqual, 0.636, 1e-9)
			})
		})
	})

	Convey("Given fewer than three prior samples", t, func() {
		got := history.SmoothEmotion(happy(2), "sad", 0.2)
		So(got, ShouldResemble, history.SmoothedEmotion{Label: "sad", Confidence: 0.2})
	})
}
