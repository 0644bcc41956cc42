package modelserving

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/attune/internal/domain/fusion"
	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/pkg/logger"
	"github.com/okian/attune/pkg/metrics"
)

// HTTPProvider scores frames by POSTing features to a model endpoint.
// Every failure becomes an Unavailable estimate.
type HTTPProvider struct {
	id         string
	role       model.Role
	endpoint   string
	metrics    []model.Metric
	codec      Codec
	client     *http.Client
	timeout    time.Duration
	sendPoints bool
}

// NewHTTPProvider creates a provider for endpoint.
func NewHTTPProvider(id string, role model.Role, endpoint string, opts ...Option) *HTTPProvider {
	p := &HTTPProvider{
		id:       id,
		role:     role,
		endpoint: endpoint,
		metrics:  []model.Metric{model.MetricAttention, model.MetricConfusion, model.MetricFatigue, model.MetricEngagement},
		codec:    JSONCodec{},
		client:   &http.Client{},
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPProvider) ID() string              { return p.id }
func (p *HTTPProvider) Role() model.Role        { return p.role }
func (p *HTTPProvider) Metrics() []model.Metric { return p.metrics }

// Estimate implements fusion.ModelProvider.
func (p *HTTPProvider) Estimate(ctx context.Context, req fusion.Request) []model.ModelEstimate {
	start := time.Now()
	resp, err := p.call(ctx, req)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		reason := failureReason(err)
		metrics.RecordModelRequest(p.id, reason, latency)
		logger.Get().Debug(ctx, "model unavailable",
			logger.String("provider", p.id),
			logger.String("reason", reason),
			logger.Error(err))
		return p.unavailable(reason)
	}
	metrics.RecordModelRequest(p.id, "ok", latency)

	out := make([]model.ModelEstimate, 0, len(resp.Scores))
	for _, s := range resp.Scores {
		out = append(out, s.estimate(p.role, p.id))
	}
	return out
}

func (p *HTTPProvider) call(ctx context.Context, req fusion.Request) (*ScoreResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body := ScoreRequest{
		SubjectID: req.SubjectID,
		FrameID:   req.FrameID,
		Metrics:   p.metrics,
		Features:  req.Features,
	}
	if p.sendPoints && req.Frame != nil {
		body.Points = req.Frame.Points
	}
	payload, err := p.codec.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.Header.Set("Content-Type", p.codec.ContentType())
	hreq.Header.Set("Accept", p.codec.ContentType())

	hresp, err := p.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", p.endpoint, err)
	}
	defer hresp.Body.Close()

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(hresp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrStatus, hresp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(hresp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var out ScoreResponse
	if err := p.codec.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &out, nil
}

func (p *HTTPProvider) unavailable(reason string) []model.ModelEstimate {
	out := make([]model.ModelEstimate, 0, len(p.metrics))
	for _, m := range p.metrics {
		out = append(out, model.Unavailable(p.role, p.id, m, reason))
	}
	return out
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrStatus):
		return err.Error()
	case errors.Is(err, ErrDecode):
		return "decode error"
	default:
		return "transport error"
	}
}
