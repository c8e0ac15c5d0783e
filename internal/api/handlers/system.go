package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/marketlens/internal/scheduler"
	"github.com/wonny/marketlens/pkg/database"
)

// HealthChecker reports database health; *database.DB satisfies it
type HealthChecker interface {
	HealthCheck(ctx context.Context) database.HealthStatus
}

// JobLister reports scheduler state; *scheduler.Scheduler satisfies it
type JobLister interface {
	Stats() []scheduler.JobStats
}

// SystemHandler serves health and job status
type SystemHandler struct {
	service string
	db      HealthChecker
	jobs    JobLister
}

// NewSystemHandler creates a system handler; db and jobs may be nil
func NewSystemHandler(service string, db HealthChecker, jobs JobLister) *SystemHandler {
	return &SystemHandler{service: service, db: db, jobs: jobs}
}

// Health returns server health status
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"service": h.service,
	}

	if h.db != nil {
		dbStatus := h.db.HealthCheck(r.Context())
		body["database"] = dbStatus
		if !dbStatus.Healthy {
			// run history is optional, market data is still served
			body["status"] = "degraded"
		}
	}

	respondJSON(w, http.StatusOK, body)
}

// GetJobs returns scheduler job statistics
// GET /api/jobs
func (h *SystemHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	stats := []scheduler.JobStats{}
	if h.jobs != nil {
		stats = h.jobs.Stats()
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    stats,
	})
}
