package workflow

import (
	"sync"

	"github.com/okian/attune/internal/domain/model"
)

// Log is a bounded append-only record of finished runs. When full the
// oldest summary is overwritten.
type Log struct {
	mu    sync.RWMutex
	buf   []model.RunSummary
	next  int
	count int
	total int
}

// NewLog creates a log holding at most size summaries.
func NewLog(size int) *Log {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Log{buf: make([]model.RunSummary, size)}
}

// Append records a summary.
func (l *Log) Append(s model.RunSummary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = s
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
	l.total++
}

// List returns up to limit summaries, newest first. limit <= 0 means all.
func (l *Log) List(limit int) []model.RunSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := l.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.RunSummary, 0, n)
	for i := range n {
		idx := (l.next - 1 - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// Find returns the summary for id if it is still retained.
func (l *Log) Find(id string) (model.RunSummary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.count {
		idx := (l.next - 1 - i + len(l.buf)) % len(l.buf)
		if l.buf[idx].ID == id {
			return l.buf[idx], true
		}
	}
	return model.RunSummary{}, false
}

// Len returns retained summaries; Total counts every append.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Total returns the number of summaries ever appended.
func (l *Log) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Summarize condenses a finished run.
func Summarize(run model.WorkflowRun) model.RunSummary {
	s := model.RunSummary{
		ID:        run.ID,
		SubjectID: run.SubjectID,
		Status:    run.Status,
		Insights:  run.Insights,
		Duration:  run.EndTime.Sub(run.StartTime),
		EndedAt:   run.EndTime,
	}
	if run.Result != nil {
		s.State = run.Result.State
	}
	for _, st := range run.Steps {
		if st.Status == model.StepFailed {
			s.FailedSteps = append(s.FailedSteps, st.Name)
		}
	}
	return s
}
