package service

import (
	"time"

	"github.com/okian/attune/internal/adapters/cache"
	"github.com/okian/attune/internal/adapters/catalog"
	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/fusion"
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/recommend"
	"github.com/okian/attune/internal/workflow"
	"github.com/okian/attune/pkg/logger"
)

// Default service configuration constants.
const (
	defaultQueueSize     = 10000
	defaultDedupeSize    = 50000
	defaultTrendWindow   = 10
	defaultPruneInterval = time.Minute
	defaultTopic         = "machine_learning"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued frames.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many frame ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithExtractor sets the geometry extractor.
func WithExtractor(e *geometry.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithHistory sets the per-subject history store.
func WithHistory(h *history.Store) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithEnsemble sets the model ensemble.
func WithEnsemble(e *fusion.Ensemble) Option {
	return func(s *Service) {
		if e != nil {
			s.ensemble = e
		}
	}
}

// WithScorer sets the fusion scorer.
func WithScorer(sc *fusion.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithClassifier sets the state classifier.
func WithClassifier(c *classifier.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithRecommender sets the recommendation engine.
func WithRecommender(r *recommend.Engine) Option {
	return func(s *Service) {
		if r != nil {
			s.recommender = r
		}
	}
}

// WithResultCache sets the analysis cache.
func WithResultCache(c *cache.ResultCache[Fused]) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithContentGenerator sets the content collaborator used by workflows.
func WithContentGenerator(g workflow.ContentGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.content = g
		}
	}
}

// WithCatalog sets the module catalog used for learning paths.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithWorkflowOptions forwards options to the orchestrator.
func WithWorkflowOptions(opts ...workflow.Option) Option {
	return func(s *Service) {
		s.workflowOpts = append(s.workflowOpts, opts...)
	}
}

// WithDefaultTopic sets the topic used when a workflow names none.
func WithDefaultTopic(topic string) Option {
	return func(s *Service) {
		if topic != "" {
			s.defaultTopic = topic
		}
	}
}

// WithTrendWindow sets k for the per-metric trends in results.
func WithTrendWindow(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.trendWindow = k
		}
	}
}

// WithPruneInterval sets how often idle subject windows are dropped.
func WithPruneInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pruneInterval = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
