// Package workflow runs the adaptation pipeline as a sequence of traced
// steps over an owned run store.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/tracer"
	"github.com/okian/attune/pkg/logger"
	"github.com/okian/attune/pkg/metrics"
)

// Insights attached to runs that stopped early.
const (
	InsightSoftTimeout = "soft timeout exceeded; partial results returned"
	InsightCancelled   = "cancelled"
)

// Orchestrator executes runs. Steps within a run are sequential; runs are
// independent and may execute concurrently.
type Orchestrator struct {
	steps       []Step
	store       *Store
	log         *Log
	softTimeout time.Duration
	tracer      trace.Tracer
	now         func() time.Time
	logger      logger.Logger
	wg          sync.WaitGroup
}

// New creates an orchestrator over the given steps, normally
// DefaultSteps.
func New(steps []Step, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		steps:       steps,
		store:       NewStore(),
		log:         NewLog(DefaultHistorySize),
		softTimeout: DefaultSoftTimeout,
		tracer:      tracer.Tracer(tracerName),
		now:         time.Now,
		logger:      logger.Named("workflow"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store exposes the active run store.
func (o *Orchestrator) Store() *Store { return o.store }

// History exposes the finished-run log.
func (o *Orchestrator) History() *Log { return o.log }

// Run executes a run to completion and returns its final record.
func (o *Orchestrator) Run(ctx context.Context, in Input) (model.WorkflowRun, error) {
	id, err := o.create(in)
	if err != nil {
		return model.WorkflowRun{}, err
	}
	return o.execute(ctx, id, in), nil
}

// Start registers a run and executes it in the background. The returned id
// can be polled with Get or stopped with Cancel.
func (o *Orchestrator) Start(ctx context.Context, in Input) (string, error) {
	id, err := o.create(in)
	if err != nil {
		return "", err
	}
	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(ctx, id, in)
	}()
	return id, nil
}

// Wait blocks until every background run has finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// Get returns an active run.
func (o *Orchestrator) Get(id string) (model.WorkflowRun, bool) { return o.store.Get(id) }

// Cancel cancels the context of an active run. A step that honors ctx
// returns early; the run ends Failed with the cancelled insight.
func (o *Orchestrator) Cancel(id string) error {
	if err := o.store.Cancel(id); err != nil {
		return fmt.Errorf("cancel %s: %w", id, err)
	}
	return nil
}

func (o *Orchestrator) create(in Input) (string, error) {
	if in.SubjectID == "" {
		return "", fmt.Errorf("%w: subject_id is required", ErrInvalidInput)
	}
	records := make([]model.StepRecord, len(o.steps))
	for i, s := range o.steps {
		records[i] = model.StepRecord{Name: s.Name, Required: s.Required, Status: model.StepPending}
	}
	id := o.store.Create(model.WorkflowRun{
		SubjectID: in.SubjectID,
		StartTime: o.now(),
		Steps:     records,
	})
	metrics.UpdateWorkflowActive(o.store.Len())
	return id, nil
}

func (o *Orchestrator) execute(ctx context.Context, id string, in Input) model.WorkflowRun {
	ctx, span := o.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.run_id", id),
		attribute.String("workflow.subject_id", in.SubjectID),
	))
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	_ = o.store.Bind(id, cancel)

	_ = o.store.Update(id, func(r *model.WorkflowRun) { r.Status = model.RunRunning })
	deadline := o.now().Add(o.softTimeout)
	st := &State{Input: in, now: o.now}

	status := model.RunCompleted
	var insights []string
	stopAt := len(o.steps)
	stopped := false

	for i, step := range o.steps {
		if o.store.Cancelled(id) || ctx.Err() != nil {
			status, stopAt, stopped = model.RunFailed, i, true
			insights = append(insights, InsightCancelled)
			break
		}
		if !o.now().Before(deadline) {
			stopAt = i
			insights = append(insights, InsightSoftTimeout)
			break
		}
		err := o.runStep(ctx, id, i, step, st)
		if err == nil {
			continue
		}
		if step.Required {
			status, stopAt = model.RunFailed, i+1
			insights = append(insights, fmt.Sprintf("required step %s failed: %v", step.Name, err))
			break
		}
		insights = append(insights, fmt.Sprintf("step %s failed; continuing with degraded input", step.Name))
	}

	var final model.WorkflowRun
	_ = o.store.Finish(id, func(r *model.WorkflowRun, cancelled bool) {
		if cancelled && !stopped {
			status = model.RunFailed
			insights = append(insights, InsightCancelled)
		}
		for j := stopAt; j < len(r.Steps); j++ {
			if r.Steps[j].Status == model.StepPending {
				r.Steps[j].Status = model.StepSkipped
			}
		}
		r.Status = status
		r.Insights = append(r.Insights, insights...)
		res := st.Result
		r.Result = &res
		r.EndTime = o.now()
		final = r.Clone()
	})

	o.log.Append(Summarize(final))
	o.store.Delete(id)
	metrics.RecordWorkflowRun(string(status))
	metrics.UpdateWorkflowActive(o.store.Len())

	span.SetAttributes(attribute.String("workflow.status", string(status)))
	if status == model.RunFailed {
		span.SetStatus(codes.Error, firstOr(insights, "failed"))
	}
	o.logger.Info(ctx, "workflow run finished",
		logger.String("run_id", id),
		logger.String("subject", in.SubjectID),
		logger.String("status", string(status)),
		logger.Duration("duration", final.EndTime.Sub(final.StartTime)))
	return final
}

func (o *Orchestrator) runStep(ctx context.Context, id string, idx int, step Step, st *State) (err error) {
	ctx, span := o.tracer.Start(ctx, "workflow.step."+step.Name, trace.WithAttributes(
		attribute.String("workflow.run_id", id),
		attribute.String("workflow.step", step.Name),
		attribute.Bool("workflow.step_required", step.Required),
	))
	defer span.End()

	started := o.now()
	_ = o.store.Update(id, func(r *model.WorkflowRun) {
		r.Steps[idx].Status = model.StepRunning
		r.Steps[idx].StartedAt = started
	})

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrStepFailed, step.Name, rec)
		}
		ended := o.now()
		stepStatus := model.StepCompleted
		if err != nil {
			stepStatus = model.StepFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.logger.Warn(ctx, "workflow step failed",
				logger.String("run_id", id),
				logger.String("step", step.Name),
				logger.Error(err))
		}
		_ = o.store.Update(id, func(r *model.WorkflowRun) {
			r.Steps[idx].Status = stepStatus
			r.Steps[idx].EndedAt = ended
			if err != nil {
				r.Steps[idx].Error = err.Error()
			}
		})
		metrics.RecordWorkflowStep(step.Name, string(stepStatus), float64(ended.Sub(started).Microseconds())/1000)
	}()

	if step.Run == nil {
		return fmt.Errorf("%w: %s has no implementation", ErrStepFailed, step.Name)
	}
	if err := step.Run(ctx, st); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStepFailed, step.Name, err)
	}
	return nil
}

func firstOr(s []string, def string) string {
	if len(s) == 0 {
		return def
	}
	return s[0]
}
