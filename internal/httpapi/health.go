// Package httpapi is the ambient observability surface: /healthz and
// /metrics, served over gorilla/mux the way ritzau-deps-analyzer's
// pkg/web/server.go wires its own routes. It is not a consumer of the
// graph itself, just a probe point for whatever deploys the engine.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/naviscope/naviscope/internal/engine"
)

// Server exposes health and metrics endpoints for a running Engine.
type Server struct {
	router *mux.Router
	eng    *engine.Engine
	reg    prometheus.Gatherer
}

// New builds a Server around eng, scraping reg for /metrics. Pass
// prometheus.DefaultGatherer in production, or an isolated
// prometheus.NewRegistry() in tests.
func New(eng *engine.Engine, reg prometheus.Gatherer) *Server {
	s := &Server{
		router: mux.NewRouter(),
		eng:    eng,
		reg:    reg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})).Methods("GET")
}

// Handler returns the underlying mux.Router for embedding in a larger
// HTTP server, or for http.ListenAndServe directly.
func (s *Server) Handler() http.Handler { return s.router }

type healthResponse struct {
	Status      string `json:"status"`
	GraphVer    uint64 `json:"graph_version"`
	ProjectRoot string `json:"project_root"`
}

// handleHealthz reports liveness plus the current graph version, so a
// readiness probe can distinguish "up, nothing indexed yet" (version 1,
// empty graph) from a process that never started.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{Status: "ok"}
	if s.eng != nil {
		resp.ProjectRoot = s.eng.ProjectRoot()
		resp.GraphVer = s.eng.Snapshot().Version()
	}
	json.NewEncoder(w).Encode(resp)
}

// ListenAndServe starts the HTTP server on addr (e.g. ":9090"), blocking
// until it returns an error.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.router)
}
