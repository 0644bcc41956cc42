package fusion

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/model"
)

// Request is what model providers see for one frame.
type Request struct {
	SubjectID string
	FrameID   string
	Features  *geometry.Features // nil when extraction failed
	Frame     *model.LandmarkFrame
}

// ModelProvider is one remote or local scoring source. Estimate must not
// return an error: failures are reported as Unavailable estimates.
type ModelProvider interface {
	ID() string
	Role() model.Role
	Metrics() []model.Metric
	Estimate(ctx context.Context, req Request) []model.ModelEstimate
}

// Ensemble queries every provider concurrently and resolves each into
// explicit Available or Unavailable estimates.
type Ensemble struct {
	providers []ModelProvider
	timeout   time.Duration
}

// NewEnsemble creates an ensemble. With no providers Collect returns nil
// and fusion falls back to the heuristic.
func NewEnsemble(opts ...EnsembleOption) *Ensemble {
	e := &Ensemble{timeout: DefaultProviderTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Providers returns the registered provider ids.
func (e *Ensemble) Providers() []string {
	ids := make([]string, len(e.providers))
	for i, p := range e.providers {
		ids[i] = p.ID()
	}
	return ids
}

// Collect gathers estimates from all providers. Every metric a provider
// declares appears in the result, either available or with a reason.
func (e *Ensemble) Collect(ctx context.Context, req Request) []model.ModelEstimate {
	if len(e.providers) == 0 {
		return nil
	}
	var (
		mu  sync.Mutex
		out []model.ModelEstimate
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range e.providers {
		g.Go(func() error {
			got := e.call(gctx, p, req)
			mu.Lock()
			out = append(out, got...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Ensemble) call(ctx context.Context, p ModelProvider, req Request) []model.ModelEstimate {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan []model.ModelEstimate, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- unavailableAll(p, "panic")
			}
		}()
		done <- p.Estimate(cctx, req)
	}()

	var got []model.ModelEstimate
	select {
	case got = <-done:
	case <-cctx.Done():
		reason := "cancelled"
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		return unavailableAll(p, reason)
	}
	return complete(p, got)
}

// complete fills in an Unavailable estimate for every declared metric the
// provider left out, and forces role and id onto what it returned.
func complete(p ModelProvider, got []model.ModelEstimate) []model.ModelEstimate {
	seen := make(map[model.Metric]bool, len(got))
	out := make([]model.ModelEstimate, 0, len(p.Metrics()))
	for _, est := range got {
		est.Source = p.Role()
		est.ModelID = p.ID()
		seen[est.Metric] = true
		out = append(out, est)
	}
	for _, m := range p.Metrics() {
		if !seen[m] {
			out = append(out, model.Unavailable(p.Role(), p.ID(), m, "no estimate"))
		}
	}
	return out
}

func unavailableAll(p ModelProvider, reason string) []model.ModelEstimate {
	out := make([]model.ModelEstimate, 0, len(p.Metrics()))
	for _, m := range p.Metrics() {
		out = append(out, model.Unavailable(p.Role(), p.ID(), m, reason))
	}
	return out
}
