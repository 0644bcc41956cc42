// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/attune/internal/app"
	"github.com/okian/attune/internal/domain/history"
	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/workflow"
)

// Dependencies required by HTTP handlers. The service implements it; tests
// substitute their own.
type Dependencies interface {
	Analyze(ctx context.Context, frame model.LandmarkFrame) (service.Result, error)
	Submit(ctx context.Context, frame model.LandmarkFrame) (string, error)

	RunWorkflow(ctx context.Context, in workflow.Input) (model.WorkflowRun, error)
	StartWorkflow(ctx context.Context, in workflow.Input) (string, error)
	ActiveRun(id string) (model.WorkflowRun, bool)
	FinishedRun(id string) (model.RunSummary, bool)
	CancelRun(id string) error
	ListRuns(limit int) []model.RunSummary

	Trend(ctx context.Context, subjectID string, metric model.Metric, k int) (history.TrendResult, error)
	Temporal(ctx context.Context, subjectID string) history.Temporal

	GetStats(ctx context.Context) service.Stats
}

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Server wires HTTP routes for the business API.
type Server struct {
	deps    Dependencies
	maxBody int64

	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	framesHandler   *FramesHandler
	workflowHandler *WorkflowHandler
	subjectHandler  *SubjectHandler
}

// NewServer creates a new API server with all handlers. maxBody <= 0 uses
// DefaultMaxBodyBytes.
func NewServer(deps Dependencies, maxBody int64) *Server {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Server{
		deps:            deps,
		maxBody:         maxBody,
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		framesHandler:   NewFramesHandler(deps),
		workflowHandler: NewWorkflowHandler(deps),
		subjectHandler:  NewSubjectHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(LimitBody(h, s.maxBody), endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())

	route("POST /v1/analyze", "analyze", s.framesHandler.HandleAnalyze)
	route("POST /v1/frames", "frames", s.framesHandler.HandleSubmit)

	route("POST /v1/workflows", "workflows", s.workflowHandler.HandleStart)
	route("GET /v1/workflows", "workflows", s.workflowHandler.HandleList)
	route("GET /v1/workflows/{id}", "workflow", s.workflowHandler.HandleGet)
	route("DELETE /v1/workflows/{id}", "workflow", s.workflowHandler.HandleCancel)

	route("GET /v1/subjects/{id}/trend", "trend", s.subjectHandler.HandleTrend)
	route("GET /v1/subjects/{id}/temporal", "temporal", s.subjectHandler.HandleTemporal)
}

// pointRequest is one landmark in request bodies.
type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// frameRequest mirrors the OpenAPI schema for a landmark frame.
type frameRequest struct {
	FrameID   string         `json:"frame_id"`
	SubjectID string         `json:"subject_id"`
	Timestamp string         `json:"timestamp"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Landmarks []pointRequest `json:"landmarks"`
}

func (f frameRequest) validate() error {
	switch {
	case strings.TrimSpace(f.SubjectID) == "":
		return errors.New("missing subject_id")
	case len(f.Landmarks) == 0:
		return errors.New("missing landmarks")
	}
	if f.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339Nano, f.Timestamp); err != nil {
			return errors.New("invalid timestamp; must be RFC3339")
		}
	}
	return nil
}

// frame converts the request. An empty timestamp becomes now.
func (f frameRequest) frame(now time.Time) model.LandmarkFrame {
	ts := now
	if f.Timestamp != "" {
		ts, _ = time.Parse(time.RFC3339Nano, f.Timestamp)
	}
	pts := make([]model.Point, len(f.Landmarks))
	for i, p := range f.Landmarks {
		pts[i] = model.Point{X: p.X, Y: p.Y}
	}
	return model.LandmarkFrame{
		ID:        strings.TrimSpace(f.FrameID),
		SubjectID: strings.TrimSpace(f.SubjectID),
		Timestamp: ts,
		Width:     f.Width,
		Height:    f.Height,
		Points:    pts,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and workflow sentinels to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, model.ErrInvalidFrame),
		errors.Is(err, workflow.ErrInvalidInput),
		errors.Is(err, service.ErrUnknownMetric),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrDuplicateFrame):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, workflow.ErrRunNotFound), errors.Is(err, service.ErrNoHistory):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, workflow.ErrRunFinished):
		writeError(w, http.StatusConflict, "finished", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
