package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sima-platform/guidance/internal/guideline"
	"github.com/sima-platform/guidance/internal/rag"
)

// defaultQueryPreviewChars bounds chunk text in /rag/query responses.
const defaultQueryPreviewChars = 500

// Engine is the answering pipeline contract, satisfied by *rag.Engine.
type Engine interface {
	Index(ctx context.Context, versionID string, force bool) (rag.IndexResult, error)
	Query(ctx context.Context, versionID, query string, topK int) ([]rag.RankedChunk, error)
	Ask(ctx context.Context, question, versionID string) (rag.Answer, error)
	Status() rag.Status
}

// RAGHandler serves the index, query and ask endpoints.
type RAGHandler struct {
	engine       Engine
	previewChars int
	logger       *slog.Logger
}

// NewRAGHandler creates a RAG handler. previewChars bounds chunk text in
// query responses; non-positive values select the default.
func NewRAGHandler(engine Engine, previewChars int, logger *slog.Logger) *RAGHandler {
	if previewChars <= 0 {
		previewChars = defaultQueryPreviewChars
	}
	return &RAGHandler{engine: engine, previewChars: previewChars, logger: logger}
}

// RegisterRoutes registers RAG routes on the given mux.
func (h *RAGHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /rag/index", h.index)
	mux.HandleFunc("POST /rag/query", h.query)
	mux.HandleFunc("POST /ask", h.ask)
}

type indexRequest struct {
	GuidelineVersionID string `json:"guideline_version_id"`
	Force              bool   `json:"force"`
}

type indexResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

func (h *RAGHandler) index(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	req.GuidelineVersionID = strings.TrimSpace(req.GuidelineVersionID)
	if req.GuidelineVersionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "guideline_version_id required", h.logger)
		return
	}

	result, err := h.engine.Index(r.Context(), req.GuidelineVersionID, req.Force)
	if errors.Is(err, guideline.ErrVersionNotFound) {
		writeError(w, http.StatusNotFound, "version_not_found", err.Error(), h.logger)
		return
	}
	if err != nil {
		h.logger.Error("index failed", "version", req.GuidelineVersionID, "error", err)
		writeError(w, http.StatusInternalServerError, "index_failed", "indexing failed", h.logger)
		return
	}

	message := "indexed"
	if result.AlreadyIndexed {
		message = "already_indexed"
	}
	writeJSON(w, http.StatusOK, indexResponse{OK: true, Message: message, Chunks: result.Chunks}, h.logger)
}

type queryRequest struct {
	GuidelineVersionID string `json:"guideline_version_id"`
	Query              string `json:"query"`
	TopK               int    `json:"top_k"`
}

type queryResult struct {
	Ref   string  `json:"ref"`
	Score float64 `json:"score"`
	Sim   float64 `json:"sim"`
	BM25  float64 `json:"bm25"`
	Text  string  `json:"text"`
}

type queryResponse struct {
	OK      bool          `json:"ok"`
	Results []queryResult `json:"results"`
}

func (h *RAGHandler) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	req.GuidelineVersionID = strings.TrimSpace(req.GuidelineVersionID)
	req.Query = strings.TrimSpace(req.Query)
	if req.GuidelineVersionID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "guideline_version_id and query required", h.logger)
		return
	}

	ranked, err := h.engine.Query(r.Context(), req.GuidelineVersionID, req.Query, req.TopK)
	if err != nil {
		h.logger.Error("query failed", "version", req.GuidelineVersionID, "error", err)
		writeError(w, http.StatusInternalServerError, "query_failed", "retrieval failed", h.logger)
		return
	}

	results := make([]queryResult, 0, len(ranked))
	for _, rc := range ranked {
		results = append(results, queryResult{
			Ref:   rc.Chunk.Ref,
			Score: rc.Final,
			Sim:   rc.Sim,
			BM25:  rc.BM25,
			Text:  truncateRunes(rc.Chunk.Content, h.previewChars),
		})
	}
	writeJSON(w, http.StatusOK, queryResponse{OK: true, Results: results}, h.logger)
}

type askRequest struct {
	Question           string `json:"question"`
	GuidelineVersionID string `json:"guideline_version_id"`
}

func (h *RAGHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question required", h.logger)
		return
	}

	answer, err := h.engine.Ask(r.Context(), req.Question, strings.TrimSpace(req.GuidelineVersionID))
	if errors.Is(err, guideline.ErrNoVersions) {
		writeError(w, http.StatusConflict, "no_guidelines", "no guideline version has been imported", h.logger)
		return
	}
	if errors.Is(err, guideline.ErrVersionNotFound) {
		writeError(w, http.StatusNotFound, "version_not_found", err.Error(), h.logger)
		return
	}
	if err != nil {
		h.logger.Error("ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ask_failed", "answering failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, answer, h.logger)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
