package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/sima-platform/guidance/internal/rag"
)

// RunStore is the audit trail read contract, satisfied by *rag.Recorder.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]rag.StoredRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (rag.StoredRun, error)
}

// RunHandler serves the chat run audit endpoints. Read-only: runs are
// written by the answering path, never over HTTP.
type RunHandler struct {
	store  RunStore
	logger *slog.Logger
}

// NewRunHandler creates a run handler.
func NewRunHandler(store RunStore, logger *slog.Logger) *RunHandler {
	return &RunHandler{store: store, logger: logger}
}

// RegisterRoutes registers run routes on the given mux.
func (h *RunHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /runs", h.list)
	mux.HandleFunc("GET /runs/{id}", h.get)
}

func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list chat runs", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list chat runs", h.logger)
		return
	}
	if runs == nil {
		runs = []rag.StoredRun{}
	}
	writeJSON(w, http.StatusOK, runs, h.logger)
}

func (h *RunHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid run id", h.logger)
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, rag.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run_not_found", err.Error(), h.logger)
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch chat run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed", "could not fetch chat run", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, run, h.logger)
}
