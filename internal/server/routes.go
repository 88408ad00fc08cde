package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Runs
	mux.HandleFunc("/api/runs", s.handleRunsRoute) // GET (list), POST (trigger)
	mux.HandleFunc("/api/runs/", s.app.RunHandler.GetRunHandler)

	// API routes - Workflows
	mux.HandleFunc("/api/workflows", s.app.StatusHandler.ListWorkflowsHandler)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)

	return mux
}

// handleRunsRoute dispatches /api/runs by method
func (s *Server) handleRunsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.RunHandler.ListRunsHandler(w, r)
	case http.MethodPost:
		s.app.RunHandler.TriggerRunHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
