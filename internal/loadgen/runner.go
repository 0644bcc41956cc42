package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/attune/pkg/logger"
)

// Runner configuration constants.
const (
	directoryPermission  = 0o750
	drainPollInterval    = 100 * time.Millisecond
	drainTimeout         = 2 * time.Minute
	percentageMultiplier = 100
)

// ErrInvalidConfig reports an unusable load configuration.
var ErrInvalidConfig = errors.New("invalid load configuration")

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Subjects <= 0 || c.Frames <= 0:
		return fmt.Errorf("%w: subjects and frames must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Mode != ModeAnalyze && c.Mode != ModeSubmit:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	return nil
}

// Run executes a complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now(), States: map[string]int{}}
	log := logger.Get()

	log.Info(ctx, "starting attune load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("subjects", cfg.Subjects),
		logger.Int("frames", cfg.Frames),
		logger.Int("workers", cfg.Workers),
		logger.String("mode", cfg.Mode),
		logger.Bool("workflows", cfg.Workflows))

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	frames, err := generateFrames(ctx, cfg, stats)
	if err != nil {
		return nil, fmt.Errorf("frame generation failed: %w", err)
	}

	submitFrames(ctx, cfg, frames, stats)

	if cfg.Mode == ModeSubmit {
		if err := waitForDrain(ctx, client, cfg); err != nil {
			log.Warn(ctx, "queue did not drain", logger.Error(err))
		}
	}

	if cfg.Workflows {
		runWorkflows(ctx, client, cfg, stats)
	}

	if cfg.OutputFile != "" {
		if err := saveFramesToFile(ctx, cfg.OutputFile, frames); err != nil {
			log.Warn(ctx, "failed to save frames to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, cfg *Config) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := client.getJSON(ctx, cfg.BaseURL+"/healthz", &body); err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("service reports status %q", body.Status)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// waitForDrain polls /stats until the frame queue is empty.
func waitForDrain(ctx context.Context, client *HTTPClient, cfg *Config) error {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for {
		var st struct {
			QueueLength int `json:"queue_length"`
		}
		if err := client.getJSON(ctx, cfg.BaseURL+"/stats", &st); err != nil {
			return err
		}
		if st.QueueLength == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type workflowReply struct {
	Run struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Result *struct {
			State string `json:"cognitive_state"`
		} `json:"result"`
	} `json:"run"`
}

// runWorkflows runs one synchronous workflow per subject over its stored
// history.
func runWorkflows(ctx context.Context, client *HTTPClient, cfg *Config, stats *Stats) {
	for s := range cfg.Subjects {
		subject := fmt.Sprintf("subject-%03d", s)
		resp, err := client.Post(ctx, cfg.BaseURL+"/v1/workflows", map[string]string{"subject_id": subject})
		if err != nil {
			stats.WorkflowsFailed++
			continue
		}
		var reply workflowReply
		err = json.NewDecoder(resp.Body).Decode(&reply)
		_ = resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK || reply.Run.Status != "completed" {
			stats.WorkflowsFailed++
			continue
		}
		stats.WorkflowsCompleted++
		if reply.Run.Result != nil && reply.Run.Result.State != "" {
			stats.States[reply.Run.Result.State]++
		}
	}
	logger.Get().Info(ctx, "workflows finished",
		logger.Int("completed", stats.WorkflowsCompleted),
		logger.Int("failed", stats.WorkflowsFailed),
		logger.Any("states", stats.States))
}

// saveFramesToFile writes the generated frames as a JSON array.
func saveFramesToFile(ctx context.Context, filename string, frames []Frame) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(frames); err != nil {
		return fmt.Errorf("failed to write frames: %w", err)
	}
	logger.Get().Info(ctx, "frames saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, framesPerSecond float64
	if stats.FramesSubmitted > 0 {
		successRate = float64(stats.FramesSuccessful) / float64(stats.FramesSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		framesPerSecond = float64(stats.FramesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("framesGenerated", stats.FramesGenerated),
		logger.Int("framesSubmitted", stats.FramesSubmitted),
		logger.Int("framesSuccessful", stats.FramesSuccessful),
		logger.Int("framesDuplicate", stats.FramesDuplicate),
		logger.Int("framesFailed", stats.FramesFailed),
		logger.Int("workflowsCompleted", stats.WorkflowsCompleted),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("framesPerSecond", framesPerSecond))
}
