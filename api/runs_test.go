package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/sima-platform/guidance/internal/rag"
)

type mockRunStore struct {
	listFn func(ctx context.Context, limit int) ([]rag.StoredRun, error)
	getFn  func(ctx context.Context, id uuid.UUID) (rag.StoredRun, error)
}

func (m *mockRunStore) ListRuns(ctx context.Context, limit int) ([]rag.StoredRun, error) {
	return m.listFn(ctx, limit)
}

func (m *mockRunStore) GetRun(ctx context.Context, id uuid.UUID) (rag.StoredRun, error) {
	return m.getFn(ctx, id)
}

func newRunTestHandler(store RunStore) http.Handler {
	mux := http.NewServeMux()
	NewRunHandler(store, slog.New(slog.DiscardHandler)).RegisterRoutes(mux)
	return mux
}

func TestListRunsEndpoint(t *testing.T) {
	answer := "Coastal setback is 35%."
	store := &mockRunStore{
		listFn: func(_ context.Context, limit int) ([]rag.StoredRun, error) {
			if limit != 10 {
				t.Errorf("limit = %d, want 10", limit)
			}
			return []rag.StoredRun{
				{ID: uuid.New(), Question: "setback?", Mode: rag.ModeExtractive, Answer: &answer, Evidence: json.RawMessage(`{}`)},
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	newRunTestHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var runs []rag.StoredRun
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(runs) != 1 || runs[0].Mode != rag.ModeExtractive {
		t.Errorf("runs = %+v", runs)
	}
}

func TestGetRunEndpoint(t *testing.T) {
	id := uuid.New()
	store := &mockRunStore{
		getFn: func(_ context.Context, got uuid.UUID) (rag.StoredRun, error) {
			if got != id {
				t.Errorf("GetRun(%s), want %s", got, id)
			}
			return rag.StoredRun{ID: id, Question: "q", Mode: rag.ModeNoEvidence, Evidence: json.RawMessage(`{}`)}, nil
		},
	}

	rec := httptest.NewRecorder()
	newRunTestHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+id.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}

	var run rag.StoredRun
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if run.ID != id || run.Answer != nil {
		t.Errorf("run = %+v, want refusal with nil answer", run)
	}
}

func TestGetRunErrors(t *testing.T) {
	store := &mockRunStore{
		getFn: func(context.Context, uuid.UUID) (rag.StoredRun, error) {
			return rag.StoredRun{}, rag.ErrRunNotFound
		},
	}
	h := newRunTestHandler(store)

	t.Run("invalid id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/not-a-uuid", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+uuid.NewString(), nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
