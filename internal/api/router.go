package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/stream", s.handleStream)
	r.Get("/health", s.handleHealth)

	return r
}

// handleHealth reports the node's connectivity and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if s.uplink != nil {
		status["uplink_connected"] = s.uplink.IsConnected()
	}
	if s.broker != nil {
		status["broker_connected"] = s.broker.IsConnected()
	}
	writeJSON(w, http.StatusOK, status)
}
