// Package api provides the HTTP polling surface for the poll server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/classpulse/internal/domain"
	"github.com/ashureev/classpulse/internal/history"
	"github.com/ashureev/classpulse/internal/poll"
	"github.com/go-chi/chi/v5"
)

// Handler serves the request/response surface: lifecycle status, live
// results, and archived history.
type Handler struct {
	orch  *poll.Orchestrator
	store history.Store
}

// NewHandler creates a new API handler.
func NewHandler(orch *poll.Orchestrator, store history.Store) *Handler {
	return &Handler{orch: orch, store: store}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes mounts the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/status", h.GetStatus)
	r.Get("/api/results", h.GetResults)
	r.Get("/api/history", h.GetHistory)
	r.Get("/health", h.Health)
}

// GetStatus returns the lifecycle state and live counts.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.orch.Status())
}

// GetResults returns the live tally of the currently active poll.
func (h *Handler) GetResults(w http.ResponseWriter, _ *http.Request) {
	results, err := h.orch.Results()
	if err != nil {
		if errors.Is(err, poll.ErrNoActivePoll) {
			Error(w, http.StatusNotFound, "No active poll")
			return
		}
		slog.Error("Failed to compute results", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to compute results")
		return
	}
	JSON(w, http.StatusOK, results)
}

// GetHistory returns archived poll records, most recent first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.orch.History(r.Context())
	if err != nil {
		slog.Error("Failed to read poll history", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to load poll history")
		return
	}
	if records == nil {
		// An empty history encodes as [], not null.
		records = []domain.PollRecord{}
	}
	JSON(w, http.StatusOK, records)
}

// Health reports API and history-store health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status = "degraded"
		checks["history"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["history"] = "ok"
	}

	JSON(w, statusCode, map[string]any{
		"status": status,
		"checks": checks,
	})
}
