package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/attune/internal/domain/model"
)

// SubjectHandler exposes per-subject history views.
type SubjectHandler struct {
	deps Dependencies
}

// NewSubjectHandler creates a new subject handler.
func NewSubjectHandler(deps Dependencies) *SubjectHandler {
	return &SubjectHandler{deps: deps}
}

// HandleTrend handles GET /v1/subjects/{id}/trend?metric=attention&k=10.
// k is optional; the service default applies when absent.
func (h *SubjectHandler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing metric"))
		return
	}
	k := 0
	if raw := q.Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("k must be a positive integer"))
			return
		}
		k = n
	}
	res, err := h.deps.Trend(r.Context(), r.PathValue("id"), model.Metric(metric), k)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleTemporal handles GET /v1/subjects/{id}/temporal.
func (h *SubjectHandler) HandleTemporal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Temporal(r.Context(), r.PathValue("id")))
}
