package handlers

import (
	"net/http"

	"github.com/wonny/qcdash/internal/scheduler"
)

// JobStatsProvider exposes scheduler statistics
type JobStatsProvider interface {
	GetJobStats() map[string]scheduler.JobStats
}

// JobsHandler reports in-process scheduler state
type JobsHandler struct {
	stats JobStatsProvider
}

// NewJobsHandler creates a jobs handler
func NewJobsHandler(stats JobStatsProvider) *JobsHandler {
	return &JobsHandler{stats: stats}
}

// GetJobs returns per-job run statistics
// GET /api/jobs
func (h *JobsHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.stats.GetJobStats())
}
