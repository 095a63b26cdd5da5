package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/royal-court/internal/services"
)

type SetCredentialsRequest struct {
	APIKey string `json:"api_key"`
}

type CredentialsResponse struct {
	Configured bool   `json:"configured"`
	Mode       string `json:"mode"` // generated|static
}

type CredentialsHandler struct {
	credentials *services.Credentials
	logger      *slog.Logger
}

func NewCredentialsHandler(credentials *services.Credentials, logger *slog.Logger) *CredentialsHandler {
	return &CredentialsHandler{
		credentials: credentials,
		logger:      logger,
	}
}

// ServeHTTP manages the generation API key
// Routes:
// GET /v1/credentials    - Report whether a key is configured
// PUT /v1/credentials    - Store a key
// DELETE /v1/credentials - Forget the key
func (h *CredentialsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:

	case http.MethodPut:
		var req SetCredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Invalid JSON in request body", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
		if err := h.credentials.Set(req.APIKey); err != nil {
			if errors.Is(err, services.ErrEmptyCredential) {
				writeError(w, h.logger, http.StatusBadRequest, "api_key field is required")
				return
			}
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to store credential")
			return
		}
		h.logger.Info("Generation credential configured")

	case http.MethodDelete:
		h.credentials.Clear()
		h.logger.Info("Generation credential cleared")

	default:
		h.logger.Warn("Method not allowed for credentials endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, PUT, DELETE")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, CredentialsResponse{
		Configured: h.credentials.Has(),
		Mode:       contentMode(h.credentials),
	})
}
