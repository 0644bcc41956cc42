package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	service "github.com/okian/attune/internal/app"
)

// FramesHandler accepts landmark frames.
type FramesHandler struct {
	deps Dependencies
	now  func() time.Time
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps Dependencies) *FramesHandler {
	return &FramesHandler{deps: deps, now: time.Now}
}

type ackResponse struct {
	FrameID   string `json:"frame_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

func (h *FramesHandler) read(r *http.Request) (frameRequest, error) {
	var req frameRequest
	if err := decode(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, err
		}
		return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := req.validate(); err != nil {
		return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return req, nil
}

// HandleAnalyze handles POST /v1/analyze: the frame is analyzed inline and
// the result returned.
func (h *FramesHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := h.read(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.deps.Analyze(r.Context(), req.frame(h.now()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSubmit handles POST /v1/frames: the frame is queued for the worker
// pool. A frame id seen before is acknowledged as a duplicate.
func (h *FramesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	req, err := h.read(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, err := h.deps.Submit(r.Context(), req.frame(h.now()))
	switch {
	case errors.Is(err, service.ErrDuplicateFrame):
		writeJSON(w, http.StatusOK, ackResponse{FrameID: id, Status: "duplicate", Duplicate: true})
	case err != nil:
		writeServiceError(w, err)
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{FrameID: id, Status: "accepted"})
	}
}
