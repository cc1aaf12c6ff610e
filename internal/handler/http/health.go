package http

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/windfall/vntutor_service/pkg/response"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EngineStatus reports the transcription engine state.
type EngineStatus interface {
	Ready() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	ready   atomic.Bool
	service string
	engine  string
	status  EngineStatus
	deps    map[string]Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(serviceName, engineName string, status EngineStatus) *HealthHandler {
	h := &HealthHandler{
		service: serviceName,
		engine:  engineName,
		status:  status,
		deps:    map[string]Pinger{},
	}
	h.ready.Store(true)
	return h
}

// AddDependency registers a dependency checked by Ready.
func (h *HealthHandler) AddDependency(name string, p Pinger) {
	h.deps[name] = p
}

// SetReady sets the ready state.
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *HealthHandler) engineStatus() string {
	if h.status != nil && h.status.Ready() {
		return "loaded"
	}
	return "not_loaded"
}

// Health reports liveness together with the engine status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"model":        h.engine,
		"model_status": h.engineStatus(),
		"service":      h.service,
	})
}

// Ready checks if the service is ready to receive traffic: the engine is
// configured and every registered dependency answers a ping.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"engine": h.engineStatus()}
	ok := h.ready.Load() && checks["engine"] == "loaded"
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = "unavailable"
			ok = false
			continue
		}
		checks[name] = "ok"
	}

	if !ok {
		response.JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}

// Live checks if the service is alive (for Kubernetes liveness probe).
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
	})
}
