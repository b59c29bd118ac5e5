// Package api serves the diagnostics endpoints of a running scan.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/zfinder/pkg/metrics"
)

// ProgressSource reports the live state of a scan run.
type ProgressSource interface {
	GetStats() map[string]interface{}
}

// Server wires the diagnostics routes over a progress source.
type Server struct {
	progress ProgressSource
}

// NewServer creates a diagnostics server for progress.
func NewServer(progress ProgressSource) *Server {
	return &Server{progress: progress}
}

// Register attaches /healthz, /stats and /metrics to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", instrument("healthz", getOnly(s.handleHealth)))
	mux.HandleFunc("/stats", instrument("stats", getOnly(s.handleStats)))
	mux.Handle("/metrics", metrics.Handler())
}

// handleHealth answers liveness probes and tells whether a run is in flight.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	running, _ := s.progress.GetStats()["running"].(bool)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"running": running,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.progress.GetStats())
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
