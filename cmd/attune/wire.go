package main

import (
	"fmt"

	"github.com/okian/attune/internal/adapters/cache"
	"github.com/okian/attune/internal/adapters/catalog"
	"github.com/okian/attune/internal/adapters/contentgen"
	"github.com/okian/attune/internal/adapters/modelserving"
	service "github.com/okian/attune/internal/app"
	"github.com/okian/attune/internal/config"
	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/domain/fusion"
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/domain/recommend"
	"github.com/okian/attune/internal/workflow"
	"github.com/okian/attune/pkg/logger"
)

// newService assembles the engine from a validated configuration.
func newService(cfg *config.Config, log logger.Logger) (*service.Service, error) {
	layout, err := geometry.ByName(cfg.Geometry.Layout)
	if err != nil {
		return nil, err
	}
	providers, err := newProviders(cfg.ModelServing)
	if err != nil {
		return nil, err
	}
	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		if cat, err = catalog.Load(cfg.Catalog.Path); err != nil {
			return nil, err
		}
	}

	return service.New(
		service.WithLogger(log),
		service.WithWorkerCount(cfg.Worker.Count),
		service.WithQueueSize(cfg.Queue.Size),
		service.WithDedupeSize(cfg.Worker.DedupeSize),
		service.WithExtractor(geometry.NewExtractor(
			geometry.WithLayout(layout),
			geometry.WithBlinkThreshold(cfg.Geometry.BlinkThreshold),
		)),
		service.WithHistory(history.NewStore(
			history.WithCapacity(cfg.History.Capacity),
			history.WithIdleTTL(config.Millis(cfg.History.IdleTTLMS)),
			history.WithStableBand(cfg.History.StableBand),
		)),
		service.WithTrendWindow(cfg.History.TrendWindow),
		service.WithEnsemble(fusion.NewEnsemble(
			fusion.WithProviders(providers...),
			fusion.WithProviderTimeout(config.Millis(cfg.Fusion.ProviderTimeoutMS)),
		)),
		service.WithScorer(fusion.NewScorer(
			fusion.WithWeights(cfg.Fusion.PrimaryWeight, cfg.Fusion.SecondaryWeight, cfg.Fusion.HeuristicWeight),
			fusion.WithVarianceGain(cfg.Fusion.VarianceGain),
		)),
		service.WithClassifier(classifier.New(classifier.WithThresholds(cfg.Classifier))),
		service.WithRecommender(recommend.New(recommend.WithLimit(cfg.Recommend.Limit))),
		service.WithResultCache(cache.New[service.Fused](
			cache.WithName("analysis"),
			cache.WithTTL(config.Millis(cfg.Cache.TTLMS)),
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
		)),
		service.WithContentGenerator(contentgen.New(cfg.Content.APIKey, cfg.Content.BaseURL,
			contentgen.WithModel(cfg.Content.Model),
			contentgen.WithTimeout(config.Millis(cfg.Content.TimeoutMS)),
			contentgen.WithMaxTokens(cfg.Content.MaxTokens),
		)),
		service.WithCatalog(cat),
		service.WithDefaultTopic(cfg.Workflow.DefaultTopic),
		service.WithWorkflowOptions(
			workflow.WithSoftTimeout(config.Millis(cfg.Workflow.SoftTimeoutMS)),
			workflow.WithHistorySize(cfg.Workflow.HistorySize),
		),
	), nil
}

// newProviders builds the remote providers plus the simulated stand-in
// when enabled.
func newProviders(cfg config.ModelServingConfig) ([]fusion.ModelProvider, error) {
	var out []fusion.ModelProvider
	if cfg.Simulated {
		out = append(out, modelserving.NewSimulated(
			modelserving.WithSimulatedRole(model.Role(cfg.SimulatedRole)),
			modelserving.WithLatencyRange(
				config.Millis(cfg.SimulatedMinLatencyMS),
				config.Millis(cfg.SimulatedMaxLatencyMS),
			),
		))
	}
	for _, p := range cfg.Providers {
		codec, err := modelserving.CodecByName(p.Codec)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.ID, err)
		}
		opts := []modelserving.Option{
			modelserving.WithCodec(codec),
			modelserving.WithSendPoints(p.SendPoints),
		}
		if p.TimeoutMS > 0 {
			opts = append(opts, modelserving.WithTimeout(config.Millis(p.TimeoutMS)))
		}
		if len(p.Metrics) > 0 {
			ms := make([]model.Metric, len(p.Metrics))
			for i, m := range p.Metrics {
				ms[i] = model.Metric(m)
			}
			opts = append(opts, modelserving.WithMetrics(ms...))
		}
		out = append(out, modelserving.NewHTTPProvider(p.ID, model.Role(p.Role), p.Endpoint, opts...))
	}
	return out, nil
}
