// Package config defines service configuration structures and loading hooks.
//
// Every section maps to one component. Durations are integer milliseconds
// so they read the same in YAML and in environment variables.
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/attune/internal/domain/classifier"
	"github.com/okian/attune/internal/tracer"
)

// Config contains process configuration.
type Config struct {
	Server       ServerConfig          `koanf:"server"`
	Log          LogConfig             `koanf:"log"`
	Queue        QueueConfig           `koanf:"queue"`
	Worker       WorkerConfig          `koanf:"worker"`
	Geometry     GeometryConfig        `koanf:"geometry"`
	History      HistoryConfig         `koanf:"history"`
	Cache        CacheConfig           `koanf:"cache"`
	Fusion       FusionConfig          `koanf:"fusion"`
	Classifier   classifier.Thresholds `koanf:"classifier"`
	Recommend    RecommendConfig       `koanf:"recommend"`
	Workflow     WorkflowConfig        `koanf:"workflow"`
	ModelServing ModelServingConfig    `koanf:"model_serving"`
	Content      ContentConfig         `koanf:"content"`
	Catalog      CatalogConfig         `koanf:"catalog"`
	Tracing      tracer.Config         `koanf:"tracing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr              string `koanf:"addr"`
	ReadTimeoutMS     int    `koanf:"read_timeout_ms"`
	WriteTimeoutMS    int    `koanf:"write_timeout_ms"`
	ShutdownTimeoutMS int    `koanf:"shutdown_timeout_ms"`
	MaxBodyBytes      int64  `koanf:"max_body_bytes"`
}

// LogConfig controls verbosity, format and the optional rotated file.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// QueueConfig bounds the asynchronous frame queue.
type QueueConfig struct {
	Size int `koanf:"size"`
}

// WorkerConfig sizes the analysis pool and its frame-id deduper.
type WorkerConfig struct {
	Count      int `koanf:"count"`
	DedupeSize int `koanf:"dedupe_size"`
}

// GeometryConfig selects the landmark layout and feature thresholds.
type GeometryConfig struct {
	Layout         string  `koanf:"layout"`
	BlinkThreshold float64 `koanf:"blink_threshold"`
}

// HistoryConfig sizes the per-subject windows.
type HistoryConfig struct {
	Capacity    int     `koanf:"capacity"`
	IdleTTLMS   int     `koanf:"idle_ttl_ms"`
	StableBand  float64 `koanf:"stable_band"`
	TrendWindow int     `koanf:"trend_window"`
}

// CacheConfig bounds the analysis cache.
type CacheConfig struct {
	TTLMS      int `koanf:"ttl_ms"`
	MaxEntries int `koanf:"max_entries"`
}

// FusionConfig holds ensemble weights and the per-provider deadline.
type FusionConfig struct {
	PrimaryWeight     float64 `koanf:"primary_weight"`
	SecondaryWeight   float64 `koanf:"secondary_weight"`
	HeuristicWeight   float64 `koanf:"heuristic_weight"`
	VarianceGain      float64 `koanf:"variance_gain"`
	ProviderTimeoutMS int     `koanf:"provider_timeout_ms"`
}

// RecommendConfig caps the recommendation list.
type RecommendConfig struct {
	Limit int `koanf:"limit"`
}

// WorkflowConfig configures the orchestrator.
type WorkflowConfig struct {
	SoftTimeoutMS int    `koanf:"soft_timeout_ms"`
	HistorySize   int    `koanf:"history_size"`
	DefaultTopic  string `koanf:"default_topic"`
}

// ProviderConfig describes one remote model-serving endpoint.
type ProviderConfig struct {
	ID         string   `koanf:"id"`
	Role       string   `koanf:"role"`
	Endpoint   string   `koanf:"endpoint"`
	Codec      string   `koanf:"codec"`
	TimeoutMS  int      `koanf:"timeout_ms"`
	Metrics    []string `koanf:"metrics"`
	SendPoints bool     `koanf:"send_points"`
}

// ModelServingConfig lists remote providers and the simulated stand-in.
type ModelServingConfig struct {
	Simulated             bool             `koanf:"simulated"`
	SimulatedRole         string           `koanf:"simulated_role"`
	SimulatedMinLatencyMS int              `koanf:"simulated_min_latency_ms"`
	SimulatedMaxLatencyMS int              `koanf:"simulated_max_latency_ms"`
	Providers             []ProviderConfig `koanf:"providers"`
}

// ContentConfig configures the chat-completion content generator. An
// empty APIKey means templated content only.
type ContentConfig struct {
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	TimeoutMS int    `koanf:"timeout_ms"`
	MaxTokens int    `koanf:"max_tokens"`
}

// CatalogConfig points at a module catalog; empty uses the built-in one.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":9080",
			ReadTimeoutMS:     10_000,
			WriteTimeoutMS:    10_000,
			ShutdownTimeoutMS: 30_000,
			MaxBodyBytes:      1 << 20,
		},
		Log:      LogConfig{Level: "info", Format: "text", MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28},
		Queue:    QueueConfig{Size: 10_000},
		Worker:   WorkerConfig{Count: runtime.NumCPU() * 2, DedupeSize: 50_000},
		Geometry: GeometryConfig{Layout: "ibug68", BlinkThreshold: 0.25},
		History: HistoryConfig{
			Capacity:    120,
			IdleTTLMS:   int((30 * time.Minute).Milliseconds()),
			StableBand:  0.05,
			TrendWindow: 10,
		},
		Cache: CacheConfig{TTLMS: 300_000, MaxEntries: 10_000},
		Fusion: FusionConfig{
			PrimaryWeight:     0.5,
			SecondaryWeight:   0.3,
			HeuristicWeight:   0.2,
			VarianceGain:      10,
			ProviderTimeoutMS: 800,
		},
		Classifier: classifier.DefaultThresholds(),
		Recommend:  RecommendConfig{Limit: 10},
		Workflow:   WorkflowConfig{SoftTimeoutMS: 5000, HistorySize: 1000, DefaultTopic: "machine_learning"},
		ModelServing: ModelServingConfig{
			Simulated:             true,
			SimulatedRole:         "secondary",
			SimulatedMinLatencyMS: 5,
			SimulatedMaxLatencyMS: 20,
		},
		Content: ContentConfig{Model: "gpt-4o-mini", TimeoutMS: 4000, MaxTokens: 400},
		Tracing: tracer.Config{ServiceName: "attune", Endpoint: "localhost:4318", Insecure: true, SampleRatio: 1},
	}
}

// Millis converts a millisecond setting to a duration.
func Millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
