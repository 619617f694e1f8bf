package engine

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/redbco/redb-docstore/pkg/health"
)

// healthResponse is the body of the /health endpoint.
type healthResponse struct {
	Status      health.Status `json:"status"`
	LastHealthy time.Time     `json:"last_healthy"`
	Checks      []healthCheck `json:"checks"`
}

type healthCheck struct {
	Name    string        `json:"name"`
	Status  health.Status `json:"status"`
	Message string        `json:"message"`
}

// Handler serves /metrics and /health.
func (e *Engine) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.metricsRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", e.healthHandler)
	return mux
}

func (e *Engine) startHTTPServer(addr string) {
	e.httpServer = &http.Server{
		Addr:              addr,
		Handler:           e.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	server := e.httpServer
	go func() {
		e.safeLog("info", "Serving metrics on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.safeLog("error", "Metrics server failed: %v", err)
		}
	}()
}

func (e *Engine) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := e.health.GetOverallStatus()
	if m := e.Manager(); m != nil {
		status = m.CheckHealth()
	}

	resp := healthResponse{
		Status:      status,
		LastHealthy: e.health.GetLastHealthyTime(),
		Checks:      []healthCheck{},
	}
	for _, c := range e.health.GetAllChecks() {
		resp.Checks = append(resp.Checks, healthCheck{Name: c.Name, Status: c.Status, Message: c.Message})
	}

	w.Header().Set("Content-Type", "application/json")
	if status == health.StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
