package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
)

// JobHandler serves the conversion job API
type JobHandler struct {
	jobService interfaces.JobService
	config     *common.Config
	logger     arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobService interfaces.JobService, config *common.Config, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		config:     config,
		logger:     logger,
	}
}

// jobSummary is the job view returned by list and status endpoints.
// The full model and report have their own endpoints.
type jobSummary struct {
	ID          string           `json:"id"`
	Status      models.JobStatus `json:"status"`
	Progress    int              `json:"progress"`
	SourceName  string           `json:"source_name"`
	SlideCount  int              `json:"slide_count,omitempty"`
	Score       *int             `json:"score,omitempty"`
	PDFUAReady  *bool            `json:"pdf_ua_ready,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
	CompletedAt string           `json:"completed_at,omitempty"`
}

func summarize(job *models.Job) jobSummary {
	s := jobSummary{
		ID:         job.ID,
		Status:     job.Status,
		Progress:   job.Progress,
		SourceName: job.SourceName,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if job.Model != nil {
		s.SlideCount = job.Model.SlideCount
	}
	if job.Report != nil {
		score := job.Report.Score
		ready := job.Report.PDFUAReady
		s.Score = &score
		s.PDFUAReady = &ready
	}
	if !job.CompletedAt.IsZero() {
		s.CompletedAt = job.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return s
}

// CreateJobHandler handles POST /api/jobs (multipart upload)
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := r.ParseMultipartForm(h.config.Jobs.MaxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart upload: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing form field \"file\"")
		return
	}
	defer file.Close()

	job, err := h.jobService.Create(r.Context(), header.Filename, file)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, summarize(job))
}

// ListJobsHandler handles GET /api/jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobService.List(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	summaries := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, summarize(job))
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  summaries,
		"count": len(summaries),
	})
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Get(r.Context(), jobIDFromPath(r.URL.Path))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summarize(job))
}

// DeleteJobHandler handles DELETE /api/jobs/{id}
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromPath(r.URL.Path)
	if err := h.jobService.Delete(r.Context(), id); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteSuccess(w, fmt.Sprintf("job %s deleted", id))
}

// GetModelHandler handles GET /api/jobs/{id}/model
func (h *JobHandler) GetModelHandler(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Get(r.Context(), jobIDFromPath(r.URL.Path))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if job.Model == nil {
		WriteError(w, http.StatusConflict, "model is not available until the job has been parsed")
		return
	}
	WriteJSON(w, http.StatusOK, job.Model)
}

// GetReportHandler handles GET /api/jobs/{id}/report
func (h *JobHandler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Get(r.Context(), jobIDFromPath(r.URL.Path))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if job.Report == nil {
		WriteError(w, http.StatusConflict, "report is not available until the job has been analyzed")
		return
	}
	WriteJSON(w, http.StatusOK, job.Report)
}

// EditElementHandler handles PUT /api/jobs/{id}/elements/{elementID}
func (h *JobHandler) EditElementHandler(w http.ResponseWriter, r *http.Request) {
	jobID, elementID, ok := elementPath(r.URL.Path)
	if !ok {
		WriteError(w, http.StatusBadRequest, "missing element ID")
		return
	}

	var edit interfaces.ElementEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid edit body: %v", err))
		return
	}
	if edit.AltText == nil && edit.Decorative == nil && edit.ReadingOrder == nil && edit.HeadingLevel == nil {
		WriteError(w, http.StatusBadRequest, "edit must set alt_text, decorative, reading_order, or heading_level")
		return
	}

	job, err := h.jobService.EditElement(r.Context(), jobID, elementID, edit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job":    summarize(job),
		"report": job.Report,
	})
}

// EditSlideTitleHandler handles PUT /api/jobs/{id}/slides/{index}/title
func (h *JobHandler) EditSlideTitleHandler(w http.ResponseWriter, r *http.Request) {
	jobID, slideIndex, ok := slideTitlePath(r.URL.Path)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid slide index")
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid title body: %v", err))
		return
	}

	job, err := h.jobService.EditSlideTitle(r.Context(), jobID, slideIndex, body.Title)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job":    summarize(job),
		"report": job.Report,
	})
}

// ConvertHandler handles POST /api/jobs/{id}/convert
func (h *JobHandler) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.Convert(r.Context(), jobIDFromPath(r.URL.Path))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, summarize(job))
}

// CancelHandler handles POST /api/jobs/{id}/cancel
func (h *JobHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromPath(r.URL.Path)
	if err := h.jobService.Cancel(r.Context(), id); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteSuccess(w, fmt.Sprintf("job %s cancelled", id))
}

// DownloadHandler handles GET /api/jobs/{id}/download
func (h *JobHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	id := jobIDFromPath(r.URL.Path)
	path, err := h.jobService.PDFPath(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".pdf"))
	http.ServeFile(w, r, path)
}

// jobIDFromPath extracts the job ID from /api/jobs/{id}[/...]
func jobIDFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/jobs/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// elementPath extracts job and element IDs from /api/jobs/{id}/elements/{elementID}
func elementPath(path string) (jobID, elementID string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/jobs/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "elements" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

// slideTitlePath extracts the job ID and slide index from
// /api/jobs/{id}/slides/{index}/title
func slideTitlePath(path string) (jobID string, slideIndex int, ok bool) {
	rest := strings.TrimPrefix(path, "/api/jobs/")
	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[1] != "slides" || parts[3] != "title" {
		return "", 0, false
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	return parts[0], index, true
}
