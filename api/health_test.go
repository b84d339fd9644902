package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sima-platform/guidance/internal/rag"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func newHealthTestHandler(engine Engine, pinger Pinger) http.Handler {
	mux := http.NewServeMux()
	NewHealthHandler(engine, pinger, slog.New(slog.DiscardHandler)).RegisterRoutes(mux)
	return mux
}

func TestHealthReportsCapabilities(t *testing.T) {
	engine := &mockEngine{
		status: rag.Status{
			VectorEnabled: true,
			BM25Enabled:   true,
			FuzzyEnabled:  false,
			EmbedProvider: "local",
		},
	}
	h := newHealthTestHandler(engine, &mockPinger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		OK            bool   `json:"ok"`
		VectorEnabled bool   `json:"vector_enabled"`
		BM25Enabled   bool   `json:"bm25_enabled"`
		FuzzyEnabled  bool   `json:"fuzzy_enabled"`
		EmbedProvider string `json:"embed_provider"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.OK || !resp.VectorEnabled || !resp.BM25Enabled || resp.FuzzyEnabled || resp.EmbedProvider != "local" {
		t.Errorf("response = %+v", resp)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		wantStatus int
	}{
		{"ready", &mockPinger{}, http.StatusOK},
		{"database down", &mockPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
		{"no pool", nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHealthTestHandler(&mockEngine{}, tt.pinger)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
