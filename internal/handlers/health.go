package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/royal-court/internal/services"
	"github.com/jwebster45206/royal-court/pkg/storage"
)

type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Service    string                 `json:"service"`
	Components map[string]interface{} `json:"components"`
}

type HealthHandler struct {
	storage     storage.Storage
	credentials *services.Credentials
	logger      *slog.Logger
}

func NewHealthHandler(storage storage.Storage, credentials *services.Credentials, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:     storage,
		credentials: credentials,
		logger:      logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]interface{})
	overallStatus := "healthy"

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}

	if _, err := h.storage.GetCatalog(ctx); err != nil {
		h.logger.Warn("Catalog health check failed", "error", err)
		components["catalog"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["catalog"] = "healthy"
	}

	// Static mode is a supported configuration, not a fault.
	components["content"] = contentMode(h.credentials)

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "royal-court",
		Components: components,
	})
}

func contentMode(c *services.Credentials) string {
	if c != nil && c.Has() {
		return "generated"
	}
	return "static"
}
