package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/fusion"
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/domain/recommend"
	"github.com/okian/attune/internal/workflow"
	"github.com/okian/attune/pkg/logger"
	"github.com/okian/attune/pkg/metrics"
)

// Fused is the memoised part of an analysis: the geometry and the fused
// estimate for one landmark set.
type Fused struct {
	Features *geometry.Features
	Estimate model.FusedEstimate
}

// Analyze runs the full pipeline for one frame. Identical landmark sets
// for a subject reuse the cached fused estimate within its TTL; history,
// classification and the frame id and timestamp are always per frame.
// Only a failure inside the pipeline itself is returned as an error;
// missing landmarks or unavailable models produce a degraded result.
func (s *Service) Analyze(ctx context.Context, frame model.LandmarkFrame) (Result, error) {
	if frame.SubjectID == "" {
		metrics.RecordFrameRejected("missing_subject")
		return Result{}, fmt.Errorf("%w: subject_id is required", model.ErrInvalidFrame)
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = s.now()
	}
	start := s.now()
	fused, cached, err := s.cache.GetOrCompute(ctx, frame.SubjectID, signature(&frame),
		func(ctx context.Context) (Fused, error) { return s.fuse(ctx, &frame) })
	if err != nil {
		return Result{}, err
	}
	if cached {
		s.logger.Debug(ctx, "fused estimate served from cache",
			logger.String("subject", frame.SubjectID),
			logger.String("frame_id", frame.ID))
	}
	return s.finish(ctx, &frame, fused, start)
}

func (s *Service) recoverAnalysis(ctx context.Context, subject string, err *error) {
	if r := recover(); r != nil {
		metrics.RecordErrorByComponent("analyzer", "panic")
		s.logger.Error(ctx, "analysis panicked",
			logger.String("subject", subject),
			logger.Any("panic", r))
		*err = fmt.Errorf("%w: %v", ErrAnalysisFailed, r)
	}
}

// fuse extracts features, queries the ensemble and fuses the estimates.
func (s *Service) fuse(ctx context.Context, f *model.LandmarkFrame) (out Fused, err error) {
	defer s.recoverAnalysis(ctx, f.SubjectID, &err)

	subject := f.SubjectID
	feat, ferr := s.extractor.Extract(f)
	if ferr == nil {
		out.Features = &feat
	} else {
		metrics.RecordFrameRejected("incomplete_landmarks")
		s.logger.Debug(ctx, "landmarks incomplete; using fallback",
			logger.String("subject", subject),
			logger.Error(ferr))
	}
	fp := out.Features

	before := s.history.Temporal(ctx, subject)
	in := fusion.Input{
		Heuristic:       fusion.Heuristic(fp, before),
		Depth:           before.Depth(),
		FeaturesMissing: fp == nil,
	}
	if fp != nil {
		in.Completeness = fp.Completeness
	}
	in.Estimates = s.ensemble.Collect(ctx, fusion.Request{
		SubjectID: subject,
		FrameID:   f.ID,
		Features:  fp,
		Frame:     f,
	})
	est := s.scorer.Fuse(in)
	if fp == nil {
		est = est.WithSource(model.SourceFallback)
	}
	metrics.RecordFusion(est.Confidence(), est.Degraded())
	out.Estimate = est
	return out, nil
}

// finish records the frame in the subject's history and classifies it.
func (s *Service) finish(ctx context.Context, f *model.LandmarkFrame, fused Fused, start time.Time) (res Result, err error) {
	defer s.recoverAnalysis(ctx, f.SubjectID, &err)

	subject := f.SubjectID
	fp, est := fused.Features, fused.Estimate

	label, top := est.Signals().DominantEmotion()
	smoothed := history.SmoothEmotion(s.history.Snapshot(ctx, subject), label, top)

	sample := history.Sample{Estimate: est, At: f.Timestamp, HasFeatures: fp != nil}
	if fp != nil {
		sample.Blink = fp.Blink
		sample.Yaw = fp.Head.Yaw
		sample.GazeDX = fp.Gaze.DX
		sample.GazeDY = fp.Gaze.DY
		sample.GazeDirection = fp.Gaze.Direction
		sample.OnScreen = fp.Gaze.OnScreen
	}
	s.history.Append(ctx, subject, sample)
	t := s.history.Temporal(ctx, subject)

	sv := est.Signals()
	state, risks := s.classifier.Classify(sv)
	perf := classifier.Evaluate(sv, t.EmotionStability)
	rc := recommend.FromEstimate(state, risks, est)
	rc.Temporal = &t
	recs := s.recommender.Recommend(rc)

	trends := make(map[model.Metric]string, len(model.ScalarMetrics))
	for _, m := range model.ScalarMetrics {
		trends[m] = s.history.Trend(ctx, subject, m, s.trendWindow).Direction
	}

	metrics.RecordFrameAnalyzed(est.Source())
	metrics.RecordCognitiveState(string(state))
	for _, r := range risks {
		metrics.RecordRiskFactor(r.Type)
	}
	metrics.RecordRecommendations(len(recs))
	metrics.RecordAnalysisLatency(elapsedMs(start, s.now()))
	metrics.UpdateTrackedSubjects(s.history.Subjects())

	return buildResult(resultParts{
		frame:    f,
		features: fp,
		estimate: est,
		temporal: t,
		smoothed: smoothed,
		state:    state,
		risks:    risks,
		perf:     perf,
		recs:     recs,
		trends:   trends,
		now:      f.Timestamp,
	}), nil
}

// AnalyzeState implements workflow.StateAnalyzer. Without a frame the
// subject's most recent history entry is classified.
func (s *Service) AnalyzeState(ctx context.Context, subjectID string, frame *model.LandmarkFrame) (workflow.Analysis, error) {
	if frame != nil {
		f := *frame
		if f.SubjectID == "" {
			f.SubjectID = subjectID
		}
		res, err := s.Analyze(ctx, f)
		if err != nil {
			return workflow.Analysis{}, err
		}
		return workflow.Analysis{
			Estimate:    res.estimate,
			State:       res.Metrics.CognitiveState,
			Risks:       res.RiskFactors,
			Temporal:    res.EnhancedAnalysis.Temporal,
			Performance: res.perf,
		}, nil
	}

	samples := s.history.Snapshot(ctx, subjectID)
	if len(samples) == 0 {
		return workflow.Analysis{}, fmt.Errorf("%w: %s", ErrNoHistory, subjectID)
	}
	est := samples[len(samples)-1].Estimate
	t := s.history.Temporal(ctx, subjectID)
	sv := est.Signals()
	state, risks := s.classifier.Classify(sv)
	return workflow.Analysis{
		Estimate:    est,
		State:       state,
		Risks:       risks,
		Temporal:    t,
		Performance: classifier.Evaluate(sv, t.EmotionStability),
	}, nil
}

// signature fingerprints the landmark geometry of a frame.
func signature(f *model.LandmarkFrame) string {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	put(f.Width)
	put(f.Height)
	for _, p := range f.Points {
		put(p.X)
		put(p.Y)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func elapsedMs(since time.Time, now time.Time) float64 {
	return float64(now.Sub(since).Microseconds()) / 1000
}
