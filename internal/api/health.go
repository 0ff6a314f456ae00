package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/financeguru/advisor/internal/connectivity"
	"github.com/financeguru/advisor/internal/store"
	"github.com/go-chi/chi/v5"
)

// HealthHandler reports liveness of this service and its dependencies.
// Backend connectivity is informational only: the advisor keeps working
// offline, so an unreachable backend does not degrade the check.
type HealthHandler struct {
	repo    store.Repository
	monitor *connectivity.Monitor
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, monitor *connectivity.Monitor) *HealthHandler {
	return &HealthHandler{repo: repo, monitor: monitor}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{
			"api":     "ok",
			"backend": h.monitor.State().String(),
		},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["store"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["store"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
