package workflow

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/attune/internal/domain/model"
)

type entry struct {
	mu        sync.Mutex
	run       model.WorkflowRun
	cancelled bool
	cancel    context.CancelFunc
}

// Store holds active runs keyed by id. Each run has its own lock; the map
// lock only guards membership.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*entry
}

// NewStore creates an empty run store.
func NewStore() *Store {
	return &Store{runs: make(map[string]*entry)}
}

// Create registers a pending run and returns its id.
func (s *Store) Create(run model.WorkflowRun) string {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Status = model.RunPending
	s.mu.Lock()
	s.runs[run.ID] = &entry{run: run}
	s.mu.Unlock()
	return run.ID
}

func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[id]
	return e, ok
}

// Get returns a copy of the run.
func (s *Store) Get(id string) (model.WorkflowRun, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return model.WorkflowRun{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run.Clone(), true
}

// Update applies fn to the run under its lock.
func (s *Store) Update(id string, fn func(*model.WorkflowRun)) error {
	e, ok := s.lookup(id)
	if !ok {
		return ErrRunNotFound
	}
	e.mu.Lock()
	fn(&e.run)
	e.mu.Unlock()
	return nil
}

// Bind attaches the cancel func of the run's context. A run cancelled
// before it was bound is cancelled immediately.
func (s *Store) Bind(id string, cancel context.CancelFunc) error {
	e, ok := s.lookup(id)
	if !ok {
		return ErrRunNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancel = cancel
	if e.cancelled {
		cancel()
	}
	return nil
}

// Cancel flags the run and cancels its context, so the running step sees
// ctx.Done and no further steps are scheduled.
func (s *Store) Cancel(id string) error {
	e, ok := s.lookup(id)
	if !ok {
		return ErrRunNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run.Status.Terminal() {
		return ErrRunFinished
	}
	e.cancelled = true
	if e.cancel != nil {
		e.cancel()
	}
	return nil
}

// Cancelled reports whether Cancel was called for id.
func (s *Store) Cancelled(id string) bool {
	e, ok := s.lookup(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

// Finish applies fn to the run under its lock, passing whether the run was
// cancelled. Cancel calls after fn marks the run terminal are refused, so
// an accepted cancel is never lost.
func (s *Store) Finish(id string, fn func(r *model.WorkflowRun, cancelled bool)) error {
	e, ok := s.lookup(id)
	if !ok {
		return ErrRunNotFound
	}
	e.mu.Lock()
	fn(&e.run, e.cancelled)
	e.mu.Unlock()
	return nil
}

// Delete drops the run from the active set.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.runs, id)
	s.mu.Unlock()
}

// List returns copies of all active runs.
func (s *Store) List() []model.WorkflowRun {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.runs))
	for _, e := range s.runs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()
	out := make([]model.WorkflowRun, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.run.Clone())
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of active runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
