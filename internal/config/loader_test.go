package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/attune/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	convey.Convey("Given no file and no environment", t, func() {
		cfg, err := config.LoadFile(context.Background(), "")

		convey.Convey("Then defaults are returned", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Server.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.History.Capacity, convey.ShouldEqual, 120)
			convey.So(cfg.Cache.TTLMS, convey.ShouldEqual, 300_000)
			convey.So(cfg.Fusion.PrimaryWeight, convey.ShouldEqual, 0.5)
			convey.So(cfg.Classifier.StrugglingConfuse, convey.ShouldEqual, 70)
			convey.So(cfg.Workflow.SoftTimeoutMS, convey.ShouldEqual, 5000)
			convey.So(cfg.Recommend.Limit, convey.ShouldEqual, 10)
			convey.So(cfg.Tracing.Enabled, convey.ShouldBeFalse)
			convey.So(config.Millis(cfg.Workflow.SoftTimeoutMS).Seconds(), convey.ShouldEqual, 5)
		})
	})
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ATTUNE_SERVER_ADDR", ":8080")
	t.Setenv("ATTUNE_FUSION_PRIMARY_WEIGHT", "0.6")
	t.Setenv("ATTUNE_MODEL_SERVING_SIMULATED", "false")
	t.Setenv("ATTUNE_CLASSIFIER_OPTIMAL_ATTENTION", "75")
	t.Setenv("ATTUNE_LOG_LEVEL", "debug")

	convey.Convey("Given section-prefixed environment variables", t, func() {
		cfg, err := config.Load(context.Background())

		convey.Convey("Then they override defaults in their section", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Server.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.Fusion.PrimaryWeight, convey.ShouldEqual, 0.6)
			convey.So(cfg.Fusion.SecondaryWeight, convey.ShouldEqual, 0.3)
			convey.So(cfg.ModelServing.Simulated, convey.ShouldBeFalse)
			convey.So(cfg.Classifier.OptimalAttention, convey.ShouldEqual, 75)
			convey.So(cfg.Log.Level, convey.ShouldEqual, "debug")
		})
	})
}

const yamlConfig = `
server:
  addr: ":7070"
history:
  capacity: 60
workflow:
  soft_timeout_ms: 2500
  default_topic: computer_vision
model_serving:
  providers:
    - id: face-net
      role: primary
      endpoint: http://models:9000/score
      codec: msgpack
      timeout_ms: 300
content:
  api_key: sk-test
catalog:
  path: /etc/attune/catalog.yaml
`

func TestLoadFile(t *testing.T) {
	convey.Convey("Given a YAML file", t, func() {
		path := filepath.Join(t.TempDir(), "attune.yaml")
		convey.So(os.WriteFile(path, []byte(yamlConfig), 0o600), convey.ShouldBeNil)

		cfg, err := config.LoadFile(context.Background(), path)

		convey.Convey("Then file values override defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Server.Addr, convey.ShouldEqual, ":7070")
			convey.So(cfg.History.Capacity, convey.ShouldEqual, 60)
			convey.So(cfg.History.StableBand, convey.ShouldEqual, 0.05)
			convey.So(cfg.Workflow.SoftTimeoutMS, convey.ShouldEqual, 2500)
			convey.So(cfg.Workflow.DefaultTopic, convey.ShouldEqual, "computer_vision")
			convey.So(cfg.ModelServing.Providers, convey.ShouldHaveLength, 1)
			convey.So(cfg.ModelServing.Providers[0].Codec, convey.ShouldEqual, "msgpack")
			convey.So(cfg.ModelServing.Providers[0].TimeoutMS, convey.ShouldEqual, 300)
			convey.So(cfg.Content.APIKey, convey.ShouldEqual, "sk-test")
			convey.So(cfg.Catalog.Path, convey.ShouldEqual, "/etc/attune/catalog.yaml")
		})
	})

	convey.Convey("Given a missing file", t, func() {
		_, err := config.LoadFile(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
		convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given defaults", t, func() {
		cfg := config.New(context.Background())
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("When several settings are broken", func() {
			cfg.Server.Addr = ""
			cfg.Fusion.HeuristicWeight = 0
			cfg.Log.Format = "xml"
			cfg.History.TrendWindow = 100
			cfg.Tracing.Enabled = true
			cfg.Tracing.Endpoint = ""
			cfg.ModelServing.Providers = []config.ProviderConfig{
				{ID: "a", Role: "primary", Endpoint: "http://a"},
				{ID: "a", Role: "primary", Endpoint: "http://b"},
				{ID: "c", Role: "heuristic", Endpoint: "http://c"},
			}
			err := cfg.Validate()

			convey.Convey("Then every problem is reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				for _, want := range []string{"server.addr", "fusion weights", "log.format", "trend_window", "tracing.endpoint", "duplicates id", "role \"heuristic\""} {
					convey.So(err.Error(), convey.ShouldContainSubstring, want)
				}
			})
		})
	})
}
