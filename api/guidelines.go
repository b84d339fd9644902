package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sima-platform/guidance/internal/guideline"
)

// GuidelineStore is the guideline persistence contract, satisfied by
// *guideline.Store.
type GuidelineStore interface {
	CreateVersion(ctx context.Context, v guideline.Version) (guideline.Version, error)
	ListVersions(ctx context.Context, limit int) ([]guideline.Version, error)
	AddItems(ctx context.Context, versionID string, items []guideline.Item) ([]guideline.Item, error)
	Items(ctx context.Context, versionID string) ([]guideline.Item, error)
}

// GuidelineHandler serves guideline version and item management.
type GuidelineHandler struct {
	store  GuidelineStore
	logger *slog.Logger
}

// NewGuidelineHandler creates a guideline handler.
func NewGuidelineHandler(store GuidelineStore, logger *slog.Logger) *GuidelineHandler {
	return &GuidelineHandler{store: store, logger: logger}
}

// RegisterRoutes registers guideline routes on the given mux.
func (h *GuidelineHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /guidelines", h.createVersion)
	mux.HandleFunc("GET /guidelines", h.listVersions)
	mux.HandleFunc("POST /guidelines/{id}/items", h.addItems)
	mux.HandleFunc("GET /guidelines/{id}/items", h.listItems)
}

type createVersionRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Region string `json:"region"`
	URL    string `json:"url"`
	PDFURL string `json:"pdf_url"`
	SHA256 string `json:"sha256"`
}

func (h *GuidelineHandler) createVersion(w http.ResponseWriter, r *http.Request) {
	var req createVersionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "source required", h.logger)
		return
	}

	v, err := h.store.CreateVersion(r.Context(), guideline.Version{
		ID:     strings.TrimSpace(req.ID),
		Source: req.Source,
		Region: req.Region,
		URL:    req.URL,
		PDFURL: req.PDFURL,
		SHA256: req.SHA256,
	})
	if err != nil {
		h.logger.Error("failed to create guideline version", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "could not create guideline version", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, v, h.logger)
}

func (h *GuidelineHandler) listVersions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	versions, err := h.store.ListVersions(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list guideline versions", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list guideline versions", h.logger)
		return
	}
	if versions == nil {
		versions = []guideline.Version{}
	}
	writeJSON(w, http.StatusOK, versions, h.logger)
}

type addItemsRequest struct {
	Items []guideline.Item `json:"items"`
}

func (h *GuidelineHandler) addItems(w http.ResponseWriter, r *http.Request) {
	versionID := r.PathValue("id")

	var req addItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "items required", h.logger)
		return
	}
	for i, it := range req.Items {
		if strings.TrimSpace(it.Ref) == "" || strings.TrimSpace(it.Text) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request",
				"items["+strconv.Itoa(i)+"]: ref and text required", h.logger)
			return
		}
	}

	items, err := h.store.AddItems(r.Context(), versionID, req.Items)
	if errors.Is(err, guideline.ErrVersionNotFound) {
		writeError(w, http.StatusNotFound, "version_not_found", err.Error(), h.logger)
		return
	}
	if err != nil {
		h.logger.Error("failed to add guide items", "version", versionID, "error", err)
		writeError(w, http.StatusInternalServerError, "add_failed", "could not add guide items", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, items, h.logger)
}

func (h *GuidelineHandler) listItems(w http.ResponseWriter, r *http.Request) {
	versionID := r.PathValue("id")

	items, err := h.store.Items(r.Context(), versionID)
	if err != nil {
		h.logger.Error("failed to list guide items", "version", versionID, "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list guide items", h.logger)
		return
	}
	if items == nil {
		items = []guideline.Item{}
	}
	writeJSON(w, http.StatusOK, items, h.logger)
}
