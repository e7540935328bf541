package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/api/middleware"
	"github.com/dvloznov/ledger-reconciler/internal/jobs"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
	"github.com/rs/zerolog"
)

// RunsHandler exposes reconciliation runs over HTTP: enqueue a run, query a
// job's state. The handler never executes a run itself; it only talks to the
// job queue.
type RunsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// CreateRun handles POST /api/runs.
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period    string  `json:"period"`
		Mode      string  `json:"mode"`
		Scope     string  `json:"scope"`
		Threshold float64 `json:"threshold"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Period) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "period is required")
		return
	}

	mode := recon.RunModeFull
	if req.Mode != "" {
		parsed, err := recon.ParseRunMode(req.Mode)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = parsed
	}

	scope := recon.ScopeAuthoritative
	if req.Scope != "" {
		parsed, err := recon.ParseMatchScope(req.Scope)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		scope = parsed
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		middleware.WriteError(w, http.StatusBadRequest, "threshold must be in [0,1]")
		return
	}

	job := &jobs.ReconcileRunJob{
		Period:    req.Period,
		Mode:      mode,
		Scope:     scope,
		Threshold: req.Threshold,
	}

	if err := h.publisher.PublishReconcileRun(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("period", req.Period).Msg("Failed to enqueue run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue run")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("period", job.Period).
		Str("mode", string(job.Mode)).
		Msg("Run enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetRun handles GET /api/runs/{jobID}.
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListRuns handles GET /api/runs.
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	status := jobs.JobStatus(r.URL.Query().Get("status"))

	list, err := h.store.ListJobs(r.Context(), status, 50)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  list,
		"count": len(list),
	})
}

// Health handles GET /api/health.
func (h *RunsHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
