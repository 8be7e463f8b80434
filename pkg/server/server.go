// Package server provides the HTTP read/export API over the snapshot store.
//
// Upstream failures never surface here: a degraded source simply contributes
// fewer records to the next snapshot, and last_sync plus the per-source counts
// are the only visible signal.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowrank/flowrank/internal/collector"
	"github.com/flowrank/flowrank/internal/metrics"
	"github.com/flowrank/flowrank/internal/snapshot"
	"github.com/flowrank/flowrank/pkg/export"
	"github.com/flowrank/flowrank/pkg/source"
)

// Server provides the HTTP API.
type Server struct {
	store       *snapshot.Store
	collector   *collector.Collector
	port        int
	corsOrigins []string
	keyedSource bool
}

// New creates a new HTTP server. keyedSource reports whether the video
// platform has at least one API credential configured; it only feeds the
// health endpoint.
func New(store *snapshot.Store, c *collector.Collector, port int, corsOrigins []string, keyedSource bool) *Server {
	if port == 0 {
		port = 8000
	}
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	return &Server{
		store:       store,
		collector:   c,
		port:        port,
		corsOrigins: corsOrigins,
		keyedSource: keyedSource,
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestMetrics)

	r.Get("/api/health", s.handleHealth)
	r.Get("/keep-alive", s.handleKeepAlive)
	r.Get("/api/workflows", s.handleWorkflows)
	r.Get("/api/workflows/platform/{platform}", s.handleWorkflowsByPlatform)
	r.Get("/api/workflows/country/{country}", s.handleWorkflowsByCountry)
	r.Post("/api/sync", s.handleSync)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/export", s.handleExport)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("server: listening on %s", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Get()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                 "healthy",
		"timestamp":              time.Now().UTC().Format(time.RFC3339),
		"youtube_api_configured": s.keyedSource,
		"workflows_cached":       len(snap.Records),
		"last_sync":              lastSync(snap),
	})
}

func (s *Server) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	s.writeWorkflows(w, r.URL.Query().Get("platform"), r.URL.Query().Get("country"), r.URL.Query().Get("limit"))
}

func (s *Server) handleWorkflowsByPlatform(w http.ResponseWriter, r *http.Request) {
	s.writeWorkflows(w, chi.URLParam(r, "platform"), "", "")
}

func (s *Server) handleWorkflowsByCountry(w http.ResponseWriter, r *http.Request) {
	s.writeWorkflows(w, "", chi.URLParam(r, "country"), "")
}

func (s *Server) writeWorkflows(w http.ResponseWriter, platform, country, limitStr string) {
	snap := s.store.Get()

	limit := 0
	if limitStr != "" {
		if _, err := fmt.Sscanf(limitStr, "%d", &limit); err != nil || limit < 0 {
			limit = 0
		}
	}

	records := snapshot.Filter(snap, snapshot.FilterOpts{
		Source: platform,
		Region: country,
		Limit:  limit,
	})
	if records == nil {
		records = []source.Record{}
	}

	// Platform/country breakdowns cover the whole snapshot, not the
	// filtered view.
	writeJSON(w, http.StatusOK, workflowsResponse{
		TotalWorkflows: len(records),
		Data:           records,
		LastSync:       lastSync(snap),
		Platforms:      snapshot.CountBySource(snap),
		Countries:      snapshot.CountByRegion(snap),
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.collector.Running() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":  "already_running",
			"message": "a refresh is already in progress",
		})
		return
	}

	refreshID := uuid.NewString()
	log.Printf("server: manual refresh %s triggered", refreshID)

	// The trigger never blocks the caller; the run detaches from the
	// request context.
	go func() {
		if _, err := s.collector.TryRun(context.Background()); err != nil {
			log.Printf("server: refresh %s: %v", refreshID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"refresh_id": refreshID,
		"status":     "processing",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Get()

	if len(snap.Records) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"total_workflows": 0,
			"last_sync":       lastSync(snap),
			"status":          "no_data",
		})
		return
	}

	type platformStats struct {
		Count         int     `json:"count"`
		TotalViews    int     `json:"total_views"`
		AvgEngagement float64 `json:"avg_engagement"`
	}

	platforms := make(map[string]*platformStats)
	for _, rec := range snap.Records {
		ps := platforms[string(rec.Source)]
		if ps == nil {
			ps = &platformStats{}
			platforms[string(rec.Source)] = ps
		}
		ps.Count++
		ps.TotalViews += rec.Metrics.Views
		ps.AvgEngagement += rec.Metrics.EngagementScore
	}
	for _, ps := range platforms {
		ps.AvgEngagement = math.Round(ps.AvgEngagement/float64(ps.Count)*100) / 100
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_workflows": len(snap.Records),
		"last_sync":       lastSync(snap),
		"platforms":       platforms,
		"countries":       snapshot.CountByRegion(snap),
		"top_workflow":    snap.Records[0].Workflow,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Get()

	switch r.URL.Query().Get("format") {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := export.WriteText(w, snap); err != nil {
			log.Printf("server: text export: %v", err)
		}
	case "", "json":
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteJSON(w, snap); err != nil {
			log.Printf("server: json export: %v", err)
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown format, use json or text"})
	}
}

// workflowsResponse mirrors the read API's documented response shape.
type workflowsResponse struct {
	TotalWorkflows int                       `json:"total_workflows"`
	Data           []source.Record           `json:"data"`
	LastSync       string                    `json:"last_sync"`
	Platforms      map[source.SourceType]int `json:"platforms"`
	Countries      map[string]int            `json:"countries"`
}

// lastSync renders the refresh timestamp, with a "never" marker before the
// first completed run.
func lastSync(snap *snapshot.Snapshot) string {
	if !snap.Refreshed() {
		return "never"
	}
	return snap.LastRefresh.Format(time.RFC3339)
}

// requestMetrics records request counts and latency per route.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, fmt.Sprintf("%d", ww.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
