package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // job sub-resources

	// API routes - Status
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.GetVersionHandler)

	return mux
}

// handleJobsRoute routes /api/jobs requests (list and create)
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.JobHandler.ListJobsHandler(w, r)
	case "POST":
		s.app.JobHandler.CreateJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobRoutes routes /api/jobs/{id} and its sub-resources
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	suffix := strings.TrimPrefix(path, "/api/jobs/")
	if suffix == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	parts := strings.Split(suffix, "/")

	// POST /api/jobs/{id}/convert and /api/jobs/{id}/cancel
	if r.Method == "POST" && len(parts) == 2 {
		switch parts[1] {
		case "convert":
			s.app.JobHandler.ConvertHandler(w, r)
			return
		case "cancel":
			s.app.JobHandler.CancelHandler(w, r)
			return
		}
	}

	// PUT /api/jobs/{id}/elements/{elementID}
	if r.Method == "PUT" && len(parts) == 3 && parts[1] == "elements" {
		s.app.JobHandler.EditElementHandler(w, r)
		return
	}

	// PUT /api/jobs/{id}/slides/{index}/title
	if r.Method == "PUT" && len(parts) == 4 && parts[1] == "slides" && parts[3] == "title" {
		s.app.JobHandler.EditSlideTitleHandler(w, r)
		return
	}

	if r.Method == "GET" {
		switch {
		case len(parts) == 1:
			s.app.JobHandler.GetJobHandler(w, r)
			return
		case len(parts) == 2 && parts[1] == "model":
			s.app.JobHandler.GetModelHandler(w, r)
			return
		case len(parts) == 2 && parts[1] == "report":
			s.app.JobHandler.GetReportHandler(w, r)
			return
		case len(parts) == 2 && parts[1] == "download":
			s.app.JobHandler.DownloadHandler(w, r)
			return
		}
	}

	// DELETE /api/jobs/{id}
	if r.Method == "DELETE" && len(parts) == 1 {
		s.app.JobHandler.DeleteJobHandler(w, r)
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}
