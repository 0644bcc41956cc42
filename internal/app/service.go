// Package service wires the analysis pipeline, the frame queue and the
// workflow orchestrator into the operations the HTTP API exposes.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/attune/internal/adapters/cache"
	"github.com/okian/attune/internal/adapters/catalog"
	"github.com/okian/attune/internal/adapters/contentgen"
	"github.com/okian/attune/internal/adapters/mq/queue"
	"github.com/okian/attune/internal/adapters/mq/worker"
	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/dedupe"
	"github.com/okian/attune/internal/domain/fusion"
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/domain/recommend"
	"github.com/okian/attune/internal/workflow"
	"github.com/okian/attune/pkg/logger"
	"github.com/okian/attune/pkg/metrics"
)

// Service owns every stateful component of the engine.
type Service struct {
	mu sync.RWMutex

	extractor    *geometry.Extractor
	history      *history.Store
	ensemble     *fusion.Ensemble
	scorer       *fusion.Scorer
	classifier   *classifier.Classifier
	recommender  *recommend.Engine
	cache        *cache.ResultCache[Fused]
	deduper      dedupe.Deduper
	queue        *queue.InMemoryQueue
	pool         *worker.Pool
	content      workflow.ContentGenerator
	catalog      *catalog.Catalog
	orchestrator *workflow.Orchestrator
	workflowOpts []workflow.Option

	workerCount   int
	queueSize     int
	dedupeSize    int
	trendWindow   int
	pruneInterval time.Duration
	defaultTopic  string
	now           func() time.Time

	started bool
	stopCh  chan struct{}
	pruneWG sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Components not supplied by options get their
// defaults; the engine can analyze frames before Start, which only starts
// the background workers.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		trendWindow:   defaultTrendWindow,
		pruneInterval: defaultPruneInterval,
		defaultTopic:  defaultTopic,
		now:           time.Now,
		logger:        logger.Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = geometry.NewExtractor()
	}
	if s.history == nil {
		s.history = history.NewStore()
	}
	if s.ensemble == nil {
		s.ensemble = fusion.NewEnsemble()
	}
	if s.scorer == nil {
		s.scorer = fusion.NewScorer()
	}
	if s.classifier == nil {
		s.classifier = classifier.New()
	}
	if s.recommender == nil {
		s.recommender = recommend.New()
	}
	if s.cache == nil {
		s.cache = cache.New[Fused](cache.WithName("analysis"))
	}
	if s.content == nil {
		s.content = contentgen.New("", "")
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)
	s.orchestrator = workflow.New(workflow.DefaultSteps(workflow.Deps{
		Analyzer:    s,
		Content:     s.content,
		Recommender: s.recommender,
		Planner:     s.catalog,
	}), s.workflowOpts...)
	return s
}

// Start launches the worker pool and the idle-subject pruner.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.stopCh = make(chan struct{})
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.ProcessorFunc(s.process))
	s.pool.Start(ctx)

	s.pruneWG.Add(1)
	go s.pruneLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "attune service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Any("providers", s.ensemble.Providers()),
	)
	return nil
}

// Stop drains the queue, waits for background workflow runs and stops the
// pruner. The queue stays closed, so a stopped service accepts no more
// frames.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping attune service")

	err := s.pool.Shutdown(ctx)
	close(s.stopCh)
	s.pruneWG.Wait()
	s.orchestrator.Wait()

	s.started = false
	s.logger.Info(ctx, "attune service stopped")
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

func (s *Service) pruneLoop(ctx context.Context) {
	defer s.pruneWG.Done()
	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := s.history.Prune(ctx); n > 0 {
				s.logger.Debug(ctx, "pruned idle subjects", logger.Int("count", n))
			}
			metrics.UpdateTrackedSubjects(s.history.Subjects())
			metrics.UpdateCacheEntries("analysis", s.cache.Len())
		}
	}
}

func (s *Service) process(ctx context.Context, job queue.Job) error {
	metrics.RecordQueueProcessingLatency(elapsedMs(job.EnqueuedAt, s.now()))
	if _, err := s.Analyze(ctx, job.Frame); err != nil {
		return err
	}
	return nil
}

// Submit queues a frame for asynchronous analysis and returns its id. A
// frame without an id gets one. Duplicate ids are rejected.
func (s *Service) Submit(ctx context.Context, frame model.LandmarkFrame) (string, error) {
	if frame.SubjectID == "" {
		metrics.RecordFrameRejected("missing_subject")
		return "", fmt.Errorf("%w: subject_id is required", model.ErrInvalidFrame)
	}
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}
	if frame.ID == "" {
		frame.ID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, frame.ID) {
		metrics.RecordFrameDuplicate()
		return frame.ID, fmt.Errorf("%w: %s", ErrDuplicateFrame, frame.ID)
	}
	if !s.queue.Enqueue(ctx, queue.Job{Frame: frame, EnqueuedAt: s.now()}) {
		s.deduper.Unrecord(ctx, frame.ID)
		return frame.ID, ErrQueueFull
	}
	return frame.ID, nil
}

// RunWorkflow executes the adaptation pipeline synchronously.
func (s *Service) RunWorkflow(ctx context.Context, in workflow.Input) (model.WorkflowRun, error) {
	return s.orchestrator.Run(ctx, s.withTopic(in))
}

// StartWorkflow executes the pipeline in the background and returns the
// run id.
func (s *Service) StartWorkflow(ctx context.Context, in workflow.Input) (string, error) {
	return s.orchestrator.Start(ctx, s.withTopic(in))
}

func (s *Service) withTopic(in workflow.Input) workflow.Input {
	if in.Topic == "" {
		in.Topic = s.defaultTopic
	}
	return in
}

// ActiveRun returns a run that has not finished yet.
func (s *Service) ActiveRun(id string) (model.WorkflowRun, bool) {
	return s.orchestrator.Get(id)
}

// FinishedRun returns the summary of a finished run still in the log.
func (s *Service) FinishedRun(id string) (model.RunSummary, bool) {
	return s.orchestrator.History().Find(id)
}

// CancelRun stops an active run.
func (s *Service) CancelRun(id string) error {
	return s.orchestrator.Cancel(id)
}

// ListRuns returns finished-run summaries, newest first.
func (s *Service) ListRuns(limit int) []model.RunSummary {
	return s.orchestrator.History().List(limit)
}

// Trend compares the last k values of metric with the prior k.
func (s *Service) Trend(ctx context.Context, subjectID string, metric model.Metric, k int) (history.TrendResult, error) {
	valid := false
	for _, m := range model.ScalarMetrics {
		valid = valid || m == metric
	}
	if !valid {
		return history.TrendResult{}, fmt.Errorf("%w: %s", ErrUnknownMetric, metric)
	}
	if k <= 0 {
		k = s.trendWindow
	}
	return s.history.Trend(ctx, subjectID, metric, k), nil
}

// Temporal returns the temporal analysis of a subject's window.
func (s *Service) Temporal(ctx context.Context, subjectID string) history.Temporal {
	return s.history.Temporal(ctx, subjectID)
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started         bool        `json:"started"`
	Workers         int         `json:"workers"`
	QueueLength     int         `json:"queue_length"`
	QueueCapacity   int         `json:"queue_capacity"`
	FramesProcessed int64       `json:"frames_processed"`
	FramesFailed    int64       `json:"frames_failed"`
	DedupeSize      int64       `json:"dedupe_size"`
	Subjects        int         `json:"tracked_subjects"`
	ActiveRuns      int         `json:"active_runs"`
	FinishedRuns    int         `json:"finished_runs"`
	Cache           cache.Stats `json:"cache"`
	Providers       []string    `json:"providers"`
	Topics          []string    `json:"topics"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Started:       s.started,
		Workers:       s.workerCount,
		QueueLength:   s.queue.Len(ctx),
		QueueCapacity: s.queue.Capacity(),
		DedupeSize:    s.deduper.Size(),
		Subjects:      s.history.Subjects(),
		ActiveRuns:    s.orchestrator.Store().Len(),
		FinishedRuns:  s.orchestrator.History().Total(),
		Cache:         s.cache.Stats(),
		Providers:     s.ensemble.Providers(),
		Topics:        s.catalog.TopicNames(),
	}
	if s.pool != nil {
		st.Workers = s.pool.Size()
		st.FramesProcessed = s.pool.Processed()
		st.FramesFailed = s.pool.Failed()
	}
	metrics.UpdateTrackedSubjects(st.Subjects)
	return st
}
