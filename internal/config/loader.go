package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment conventions.
const (
	EnvPrefix = "ATTUNE_"
	EnvFile   = "ATTUNE_CONFIG"
)

// sections lists top-level keys; longest first so model_serving wins over
// any shorter prefix.
var sections = []string{ //nolint:gochecknoglobals // read-only table
	"model_serving", "classifier", "recommend", "workflow", "geometry",
	"tracing", "history", "catalog", "content", "server", "fusion",
	"worker", "queue", "cache", "log",
}

// envKey maps ATTUNE_FUSION_PRIMARY_WEIGHT to fusion.primary_weight.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, sec := range sections {
		if strings.HasPrefix(s, sec+"_") {
			return sec + "." + strings.TrimPrefix(s, sec+"_")
		}
	}
	return s
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if ATTUNE_CONFIG is set
//  3. env (prefix ATTUNE_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvFile))
}

// LoadFile is Load with an explicit file path; empty skips the file layer.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvFile {
			return ""
		}
		return envKey(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Server.Addr == "" {
		bad("server.addr must not be empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		bad("server.max_body_bytes must be positive")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, strings.ToLower(c.Log.Level)) {
		bad("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		bad("log.format %q must be text or json", c.Log.Format)
	}
	if c.Queue.Size <= 0 {
		bad("queue.size must be positive")
	}
	if c.Geometry.Layout != "ibug68" && c.Geometry.Layout != "mediapipe" {
		bad("geometry.layout %q is unknown", c.Geometry.Layout)
	}
	if c.History.Capacity <= 0 {
		bad("history.capacity must be positive")
	}
	if c.History.TrendWindow <= 0 || 2*c.History.TrendWindow > c.History.Capacity {
		bad("history.trend_window must be positive and at most half the capacity")
	}
	if c.Cache.TTLMS <= 0 || c.Cache.MaxEntries <= 0 {
		bad("cache.ttl_ms and cache.max_entries must be positive")
	}
	if c.Fusion.PrimaryWeight <= 0 || c.Fusion.SecondaryWeight <= 0 || c.Fusion.HeuristicWeight <= 0 {
		bad("fusion weights must be positive")
	}
	if c.Fusion.ProviderTimeoutMS <= 0 {
		bad("fusion.provider_timeout_ms must be positive")
	}
	if c.Recommend.Limit <= 0 {
		bad("recommend.limit must be positive")
	}
	if c.Workflow.SoftTimeoutMS <= 0 {
		bad("workflow.soft_timeout_ms must be positive")
	}
	if !validRole(c.ModelServing.SimulatedRole) {
		bad("model_serving.simulated_role %q must be primary or secondary", c.ModelServing.SimulatedRole)
	}
	seen := map[string]bool{}
	for i, p := range c.ModelServing.Providers {
		switch {
		case p.ID == "" || p.Endpoint == "":
			bad("model_serving.providers[%d] needs id and endpoint", i)
		case seen[p.ID]:
			bad("model_serving.providers[%d] duplicates id %q", i, p.ID)
		case !validRole(p.Role):
			bad("model_serving.providers[%d] role %q must be primary or secondary", i, p.Role)
		case p.Codec != "" && p.Codec != "json" && p.Codec != "msgpack":
			bad("model_serving.providers[%d] codec %q must be json or msgpack", i, p.Codec)
		}
		seen[p.ID] = true
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		bad("tracing.endpoint is required when tracing is enabled")
	}
	return errors.Join(errs...)
}

func validRole(r string) bool { return r == "primary" || r == "secondary" }
