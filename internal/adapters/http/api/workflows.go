package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/workflow"
)

// Paging limits for GET /v1/workflows.
const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// WorkflowHandler starts, inspects and cancels adaptation runs.
type WorkflowHandler struct {
	deps Dependencies
	now  func() time.Time
}

// NewWorkflowHandler creates a new workflow handler.
func NewWorkflowHandler(deps Dependencies) *WorkflowHandler {
	return &WorkflowHandler{deps: deps, now: time.Now}
}

// workflowRequest mirrors the OpenAPI schema for POST /v1/workflows.
type workflowRequest struct {
	SubjectID string            `json:"subject_id"`
	Topic     string            `json:"topic"`
	Format    string            `json:"format"`
	Profile   map[string]string `json:"profile"`
	Frame     *frameRequest     `json:"frame"`
}

func (req workflowRequest) input(now time.Time) (workflow.Input, error) {
	in := workflow.Input{
		SubjectID: req.SubjectID,
		Topic:     req.Topic,
		Format:    req.Format,
		Profile:   req.Profile,
	}
	if req.Frame != nil {
		if req.Frame.SubjectID == "" {
			req.Frame.SubjectID = req.SubjectID
		}
		if err := req.Frame.validate(); err != nil {
			return in, fmt.Errorf("%w: frame: %w", ErrBadRequest, err)
		}
		f := req.Frame.frame(now)
		in.Frame = &f
	}
	return in, nil
}

type startResponse struct {
	RunID  string          `json:"run_id"`
	Status model.RunStatus `json:"status"`
}

type runResponse struct {
	Run     *model.WorkflowRun `json:"run,omitempty"`
	Summary *model.RunSummary  `json:"summary,omitempty"`
}

type listResponse struct {
	Runs []model.RunSummary `json:"runs"`
}

// HandleStart handles POST /v1/workflows. With ?async=true the run is
// started in the background and its id returned with 202.
func (h *WorkflowHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := decode(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		writeServiceError(w, err)
		return
	}
	in, err := req.input(h.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		id, err := h.deps.StartWorkflow(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, startResponse{RunID: id, Status: model.RunPending})
		return
	}

	run, err := h.deps.RunWorkflow(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Run: &run})
}

// HandleGet handles GET /v1/workflows/{id}. Active runs are returned in
// full; finished runs as their logged summary.
func (h *WorkflowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if run, ok := h.deps.ActiveRun(id); ok {
		writeJSON(w, http.StatusOK, runResponse{Run: &run})
		return
	}
	if sum, ok := h.deps.FinishedRun(id); ok {
		writeJSON(w, http.StatusOK, runResponse{Summary: &sum})
		return
	}
	writeServiceError(w, fmt.Errorf("%w: %s", workflow.ErrRunNotFound, id))
}

// HandleCancel handles DELETE /v1/workflows/{id}.
func (h *WorkflowHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.deps.CancelRun(id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startResponse{RunID: id, Status: model.RunRunning})
}

// HandleList handles GET /v1/workflows?limit=N, newest first.
func (h *WorkflowHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}
	runs := h.deps.ListRuns(limit)
	if runs == nil {
		runs = []model.RunSummary{}
	}
	writeJSON(w, http.StatusOK, listResponse{Runs: runs})
}
