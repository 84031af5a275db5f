package handlers

import (
	"net/http"

	"context-engine/internal/application/services"
	"context-engine/pkg/api"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	service *services.ContextService
	version string
}

// NewHealthHandler creates the handler. version appears in the liveness body
// so deploys are identifiable from the probe.
func NewHealthHandler(service *services.ContextService, version string) *HealthHandler {
	return &HealthHandler{service: service, version: version}
}

// Live handles GET /health. It only proves the process can answer; no
// dependency is touched.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /ready and GET /api/v1/health. It probes the graph
// service and the case store and reports per-component status; any failed
// probe turns the response into a 503.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	report := h.service.Health(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	api.Success(w, status, report)
}
