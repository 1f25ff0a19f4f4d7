package handler

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	// Ping database to verify connection
	if err := h.registry.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, HealthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}
