package history

import (
	"context"
	"math"
	"time"

	"github.com/okian/attune/internal/domain/model"
)

// Temporal feature windows.
const (
	blinkWindow      = 60
	emotionWindow    = 10
	headWindow       = 30
	gazeWindow       = 30
	gazeMinSamples   = 10
	attentionTrendK  = 5
	gazeNormX        = 30.0
	gazeNormY        = 25.0
	gazeDirections   = 5.0
	focusedStability = 0.8
	exploringScore   = 0.6
	distractedBelow  = 0.3
	neutralGaze      = 0.5
	focusRegion      = 0.3
)

// Gaze event detection over normalized gaze offsets. A step longer than
// saccadeThreshold is a saccade; consecutive steps within
// fixationThreshold form a fixation once it lasts minFixation.
const (
	saccadeThreshold  = 0.1
	fixationThreshold = 0.05
	minFixation       = 200 * time.Millisecond
	eventMinSamples   = 3
)

// Gaze patterns.
const (
	GazeFocused          = "focused"
	GazeExploratory      = "exploratory"
	GazeDistracted       = "distracted"
	GazeBalanced         = "balanced"
	GazeInsufficientData = "insufficient_data"
)

// Temporal summarizes a subject's recent window.
type Temporal struct {
	Samples          int     `json:"samples"`
	Capacity         int     `json:"capacity"`
	BlinkRate        float64 `json:"blink_rate"`
	Perclos          float64 `json:"perclos"`
	EmotionStability float64 `json:"emotion_stability"`
	YawVariance      float64 `json:"yaw_variance"`
	AttentionTrend   string  `json:"attention_trend"`
	GazeStability    float64 `json:"gaze_stability"`
	GazeExploration  float64 `json:"gaze_exploration"`
	GazePattern      string  `json:"gaze_pattern"`
	AttentionFocus   float64 `json:"attention_focus"`
	Saccades         int     `json:"saccade_count"`
	Fixations        int     `json:"fixation_count"`
	AvgFixation      float64 `json:"avg_fixation_duration"` // seconds
}

// Depth is how full the window is, in [0,1].
func (t Temporal) Depth() float64 {
	if t.Capacity == 0 {
		return 0
	}
	return model.Clamp01(float64(t.Samples) / float64(t.Capacity))
}

// Temporal derives temporal features for subject.
func (s *Store) Temporal(ctx context.Context, subject string) Temporal {
	t := TemporalOf(s.Snapshot(ctx, subject), s.stableBand)
	t.Capacity = s.capacity
	return t
}

// TemporalOf derives temporal features from oldest-first samples.
func TemporalOf(samples []Sample, band float64) Temporal {
	t := Temporal{
		Samples:          len(samples),
		EmotionStability: 1,
		AttentionTrend:   TrendOf(samples, model.MetricAttention, attentionTrendK, band).Direction,
		GazePattern:      GazeInsufficientData,
		GazeStability:    neutralGaze,
		AttentionFocus:   neutralGaze,
	}
	observed := withFeatures(samples)

	blinks := tail(observed, blinkWindow)
	var closed int
	prev := false
	for _, smp := range blinks {
		if smp.Blink {
			closed++
			if !prev {
				t.BlinkRate++
			}
		}
		prev = smp.Blink
	}
	if len(blinks) > 0 {
		t.Perclos = float64(closed) / float64(len(blinks))
	}

	t.EmotionStability = emotionStability(tail(samples, emotionWindow))

	yaws := tail(observed, headWindow)
	if len(yaws) > 1 {
		vals := make([]float64, len(yaws))
		for i, smp := range yaws {
			vals[i] = smp.Yaw
		}
		t.YawVariance = variance(vals)
	}

	gaze := tail(observed, gazeWindow)
	if len(gaze) >= eventMinSamples {
		t.Saccades, t.Fixations, t.AvgFixation = gazeEvents(gaze)
	}
	if len(gaze) >= gazeMinSamples {
		xs := make([]float64, len(gaze))
		ys := make([]float64, len(gaze))
		dirs := make(map[string]struct{})
		centered := 0
		for i, smp := range gaze {
			xs[i], ys[i] = normGaze(smp)
			dirs[smp.GazeDirection] = struct{}{}
			if math.Abs(xs[i]) < focusRegion && math.Abs(ys[i]) < focusRegion {
				centered++
			}
		}
		t.GazeStability = model.Clamp01(1 - (variance(xs)+variance(ys))/2)
		t.GazeExploration = model.Clamp01(float64(len(dirs)-1) / (gazeDirections - 1))
		t.AttentionFocus = float64(centered) / float64(len(gaze))
		switch {
		case t.GazeStability > focusedStability:
			t.GazePattern = GazeFocused
		case t.GazeExploration > exploringScore:
			t.GazePattern = GazeExploratory
		case t.GazeStability < distractedBelow:
			t.GazePattern = GazeDistracted
		default:
			t.GazePattern = GazeBalanced
		}
	}
	return t
}

func normGaze(smp Sample) (float64, float64) {
	return smp.GazeDX / gazeNormX, smp.GazeDY / gazeNormY
}

// gazeEvents counts saccades and fixations over consecutive samples and
// returns the mean fixation length in seconds. A step between the two
// thresholds neither starts nor ends a fixation.
func gazeEvents(samples []Sample) (saccades, fixations int, avg float64) {
	var (
		total   time.Duration
		open    bool
		startAt time.Time
	)
	closeFixation := func(end time.Time) {
		if d := end.Sub(startAt); d >= minFixation {
			fixations++
			total += d
		}
		open = false
	}
	for i := 1; i < len(samples); i++ {
		prev, cur := samples[i-1], samples[i]
		px, py := normGaze(prev)
		cx, cy := normGaze(cur)
		step := math.Hypot(cx-px, cy-py)
		switch {
		case step > saccadeThreshold:
			saccades++
			if open {
				closeFixation(prev.At)
			}
		case step <= fixationThreshold && !open:
			open, startAt = true, prev.At
		}
	}
	if open {
		closeFixation(samples[len(samples)-1].At)
	}
	if fixations > 0 {
		avg = total.Seconds() / float64(fixations)
	}
	return saccades, fixations, avg
}

// emotionStability is the share of the most common dominant emotion.
func emotionStability(samples []Sample) float64 {
	if len(samples) == 0 {
		return 1
	}
	counts := make(map[string]int)
	best := 0
	for _, smp := range samples {
		label, _ := smp.Estimate.Signals().DominantEmotion()
		counts[label]++
		if counts[label] > best {
			best = counts[label]
		}
	}
	return float64(best) / float64(len(samples))
}

func withFeatures(samples []Sample) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, smp := range samples {
		if smp.HasFeatures {
			out = append(out, smp)
		}
	}
	return out
}

func tail(samples []Sample, n int) []Sample {
	if len(samples) <= n {
		return samples
	}
	return samples[len(samples)-n:]
}

func variance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var sum float64
	for _, v := range vals {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(vals))
}
