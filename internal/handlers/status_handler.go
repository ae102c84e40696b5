package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
)

// StatusHandler reports application health and job counts
type StatusHandler struct {
	jobService interfaces.JobService
	cache      interfaces.AltcacheService
	startedAt  time.Time
	logger     arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(jobService interfaces.JobService, cache interfaces.AltcacheService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		jobService: jobService,
		cache:      cache,
		startedAt:  time.Now(),
		logger:     logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	byStatus := make(map[models.JobStatus]int)
	total := 0
	if jobs, err := h.jobService.List(r.Context()); err == nil {
		total = len(jobs)
		for _, job := range jobs {
			byStatus[job.Status]++
		}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service":        "decktag",
		"status":         "ok",
		"uptime":         time.Since(h.startedAt).Round(time.Second).String(),
		"jobs_total":     total,
		"jobs_by_status": byStatus,
		"alt_cache_size": h.cache.Len(),
		"version":        common.GetVersion(),
	})
}

// GetVersionHandler handles GET /api/version
func (h *StatusHandler) GetVersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}
