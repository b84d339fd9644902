package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sima-platform/guidance/internal/rag"
)

// Pinger is the readiness dependency, satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness, capability and readiness endpoints.
type HealthHandler struct {
	engine Engine
	pinger Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(engine Engine, pinger Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{engine: engine, pinger: pinger, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.readiness)
}

type healthResponse struct {
	OK bool `json:"ok"`
	rag.Status
}

// health reports liveness plus which optional capabilities are active, so
// operators can tell a degraded (lexical-only) deployment from a full one.
func (h *HealthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{OK: true, Status: h.engine.Status()}, h.logger)
}

// readiness pings the database.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		http.Error(w, "database pool not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.pinger.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
