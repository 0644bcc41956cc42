package modelserving

import (
	"net/http"
	"time"

	"github.com/okian/attune/internal/domain/model"
)

// Default client configuration constants.
const (
	defaultTimeout   = 800 * time.Millisecond
	maxResponseBytes = 1 << 20
)

// Option applies a configuration option to an HTTPProvider.
type Option func(*HTTPProvider)

// WithCodec selects the wire encoding.
func WithCodec(c Codec) Option {
	return func(p *HTTPProvider) {
		if c != nil {
			p.codec = c
		}
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithMetrics sets the metrics the endpoint scores.
func WithMetrics(m ...model.Metric) Option {
	return func(p *HTTPProvider) {
		if len(m) > 0 {
			p.metrics = m
		}
	}
}

// WithSendPoints includes raw landmarks in requests.
func WithSendPoints(send bool) Option {
	return func(p *HTTPProvider) { p.sendPoints = send }
}

// SimOption applies a configuration option to a Simulated provider.
type SimOption func(*Simulated)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) SimOption {
	return func(s *Simulated) {
		if minLatency >= 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSimulatedRole sets the ensemble role.
func WithSimulatedRole(r model.Role) SimOption {
	return func(s *Simulated) {
		if r == model.RolePrimary || r == model.RoleSecondary {
			s.role = r
		}
	}
}
