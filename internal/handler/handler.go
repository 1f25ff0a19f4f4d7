// Package handler exposes uploads and the admin bulk action over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"webpoptimizer/internal/assets"
	"webpoptimizer/internal/batch"
	"webpoptimizer/internal/metrics"
	"webpoptimizer/internal/storage"
	"webpoptimizer/internal/upload"
)

// Config holds handler dependencies.
type Config struct {
	Registry *assets.Registry
	Uploads  *upload.Pipeline
	Runner   *batch.Runner
	Metrics  *metrics.Logger
	Library  *storage.Storage
	SiteURL  string
	// Quality is used by the admin convert action when the request omits it.
	Quality int
	Logger  *slog.Logger
}

type Handler struct {
	registry *assets.Registry
	uploads  *upload.Pipeline
	runner   *batch.Runner
	metrics  *metrics.Logger
	library  *storage.Storage
	siteURL  string
	quality  int
	logger   *slog.Logger
}

func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: cfg.Registry,
		uploads:  cfg.Uploads,
		runner:   cfg.Runner,
		metrics:  cfg.Metrics,
		library:  cfg.Library,
		siteURL:  cfg.SiteURL,
		quality:  cfg.Quality,
		logger:   logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
