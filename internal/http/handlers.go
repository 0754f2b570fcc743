package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports 503 until the database answers a ping
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.db == nil {
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.db.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}
	if s.imports != nil {
		checks["imports"] = map[string]any{"async": s.imports.Async()}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in the Prometheus text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	cacheEntries := 0
	if s.cache != nil {
		cacheEntries = s.cache.Size()
	}

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_requests_failed_total Requests answered with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_requests_failed_total counter\n")
	fmt.Fprintf(w, "http_requests_failed_total %d\n\n", traceMetrics.FailedRequests)

	fmt.Fprintf(w, "# HELP rate_limit_rejected_total Requests refused by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_rejected_total counter\n")
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n\n", s.rateLimiter.Rejected())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.ActiveClients())

	fmt.Fprintf(w, "# HELP cache_entries Current summary cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries %d\n\n", cacheEntries)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}
