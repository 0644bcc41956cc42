package workflow

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Defaults for the orchestrator.
const (
	DefaultSoftTimeout = 5000 * time.Millisecond
	DefaultHistorySize = 1000
	tracerName         = "github.com/okian/attune/internal/workflow"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithSoftTimeout sets the run budget after which remaining steps are
// skipped.
func WithSoftTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.softTimeout = d
		}
	}
}

// WithHistorySize bounds the finished-run log.
func WithHistorySize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.log = NewLog(n)
		}
	}
}

// WithSteps replaces the step list.
func WithSteps(steps ...Step) Option {
	return func(o *Orchestrator) {
		if len(steps) > 0 {
			o.steps = steps
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
