package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/attune/pkg/logger"
)

// Outcomes of one frame submission.
const (
	outcomeSuccess   = "success"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

const progressInterval = time.Second

// HTTPClient wraps http.Client with a request timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// submitFrames sends frames concurrently using a worker pool. Frames of
// one subject keep their order only within a worker, which is enough for
// the per-subject history to fill.
func submitFrames(ctx context.Context, cfg *Config, frames []Frame, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting frames", logger.Int("frames", len(frames)), logger.Int("workers", cfg.Workers), logger.String("mode", cfg.Mode))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/v1/analyze"
	if cfg.Mode == ModeSubmit {
		url = cfg.BaseURL + "/v1/frames"
	}

	var successful, duplicate, failed, submitted atomic.Int64
	var lastReport atomic.Int64

	frameChan := make(chan Frame, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range frameChan {
				switch submitSingleFrame(ctx, client, url, f, cfg) {
				case outcomeSuccess:
					successful.Add(1)
				case outcomeDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
				total := submitted.Add(1)

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("submitted", int(total)),
						logger.Int("total", len(frames)),
						logger.Int("failed", int(failed.Load())))
				}
			}
		}()
	}

	go func() {
		defer close(frameChan)
		for _, f := range frames {
			select {
			case <-ctx.Done():
				return
			case frameChan <- f:
			}
		}
	}()
	wg.Wait()

	stats.FramesSubmitted = int(submitted.Load())
	stats.FramesSuccessful = int(successful.Load())
	stats.FramesDuplicate = int(duplicate.Load())
	stats.FramesFailed = int(failed.Load())

	log.Info(ctx, "frame submission completed",
		logger.Int("successful", stats.FramesSuccessful),
		logger.Int("duplicate", stats.FramesDuplicate),
		logger.Int("failed", stats.FramesFailed))
}

// submitSingleFrame posts one frame and classifies the reply.
func submitSingleFrame(ctx context.Context, client *HTTPClient, url string, f Frame, cfg *Config) string {
	resp, err := client.Post(ctx, url, f)
	if err != nil {
		if cfg.Verbose {
			logger.Get().Warn(ctx, "frame submission failed", logger.String("frameID", f.FrameID), logger.Error(err))
		}
		return outcomeFailed
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return outcomeFailed
	}

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return outcomeSuccess
	case resp.StatusCode == http.StatusOK && cfg.Mode == ModeSubmit:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeSuccess
	case resp.StatusCode == http.StatusOK:
		return outcomeSuccess
	default:
		if cfg.Verbose {
			logger.Get().Warn(ctx, "frame rejected",
				logger.String("frameID", f.FrameID),
				logger.Int("status", resp.StatusCode),
				logger.String("body", string(body)))
		}
		return outcomeFailed
	}
}
