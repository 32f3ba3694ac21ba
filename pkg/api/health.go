package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Stats   map[string]interface{} `json:"stats,omitempty"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type memoryStatser interface {
	GetMemoryStats() map[string]interface{}
}

// HandleHealth handles GET requests to the health check endpoint
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.storage.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "unhealthy",
				Message: err.Error(),
			})
			return
		}
	}

	resp := HealthResponse{
		Status:  "healthy",
		Message: "go-analytics is running",
	}
	if m, ok := h.storage.(memoryStatser); ok {
		resp.Stats = m.GetMemoryStats()
	}
	writeJSON(w, http.StatusOK, resp)
}
