package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sima-platform/guidance/internal/guideline"
)

type mockGuidelineStore struct {
	createFn   func(ctx context.Context, v guideline.Version) (guideline.Version, error)
	listFn     func(ctx context.Context, limit int) ([]guideline.Version, error)
	addItemsFn func(ctx context.Context, versionID string, items []guideline.Item) ([]guideline.Item, error)
	itemsFn    func(ctx context.Context, versionID string) ([]guideline.Item, error)
}

func (m *mockGuidelineStore) CreateVersion(ctx context.Context, v guideline.Version) (guideline.Version, error) {
	return m.createFn(ctx, v)
}

func (m *mockGuidelineStore) ListVersions(ctx context.Context, limit int) ([]guideline.Version, error) {
	return m.listFn(ctx, limit)
}

func (m *mockGuidelineStore) AddItems(ctx context.Context, versionID string, items []guideline.Item) ([]guideline.Item, error) {
	return m.addItemsFn(ctx, versionID, items)
}

func (m *mockGuidelineStore) Items(ctx context.Context, versionID string) ([]guideline.Item, error) {
	return m.itemsFn(ctx, versionID)
}

func newGuidelineTestHandler(store GuidelineStore) http.Handler {
	mux := http.NewServeMux()
	NewGuidelineHandler(store, slog.New(slog.DiscardHandler)).RegisterRoutes(mux)
	return mux
}

func TestCreateVersionEndpoint(t *testing.T) {
	store := &mockGuidelineStore{
		createFn: func(_ context.Context, v guideline.Version) (guideline.Version, error) {
			if v.Source != "dubai-municipality" || v.Region != "DXB" {
				t.Errorf("CreateVersion(%+v)", v)
			}
			v.ID = "gv1"
			return v, nil
		},
	}

	rec := postJSON(t, newGuidelineTestHandler(store), "/guidelines",
		`{"source":"dubai-municipality","region":"DXB"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body)
	}

	var v guideline.Version
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if v.ID != "gv1" {
		t.Errorf("ID = %q, want gv1", v.ID)
	}
}

func TestCreateVersionRequiresSource(t *testing.T) {
	store := &mockGuidelineStore{
		createFn: func(context.Context, guideline.Version) (guideline.Version, error) {
			t.Error("store must not be reached on invalid input")
			return guideline.Version{}, nil
		},
	}
	if rec := postJSON(t, newGuidelineTestHandler(store), "/guidelines", `{"region":"DXB"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListVersionsEmpty(t *testing.T) {
	store := &mockGuidelineStore{
		listFn: func(context.Context, int) ([]guideline.Version, error) { return nil, nil },
	}

	rec := httptest.NewRecorder()
	newGuidelineTestHandler(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guidelines", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// An empty list must serialize as [], not null.
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestAddItemsEndpoint(t *testing.T) {
	store := &mockGuidelineStore{
		addItemsFn: func(_ context.Context, versionID string, items []guideline.Item) ([]guideline.Item, error) {
			if versionID != "gv1" || len(items) != 1 {
				t.Errorf("AddItems(%q, %d items)", versionID, len(items))
			}
			return items, nil
		},
	}

	rec := postJSON(t, newGuidelineTestHandler(store), "/guidelines/gv1/items",
		`{"items":[{"ref":"G1#p1","text":"setback rules"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body)
	}
}

func TestAddItemsValidation(t *testing.T) {
	store := &mockGuidelineStore{
		addItemsFn: func(_ context.Context, _ string, items []guideline.Item) ([]guideline.Item, error) {
			return items, nil
		},
	}
	h := newGuidelineTestHandler(store)

	for name, body := range map[string]string{
		"no items":     `{"items":[]}`,
		"missing ref":  `{"items":[{"text":"some text"}]}`,
		"missing text": `{"items":[{"ref":"G1#p1"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			if rec := postJSON(t, h, "/guidelines/gv1/items", body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestAddItemsUnknownVersion(t *testing.T) {
	store := &mockGuidelineStore{
		addItemsFn: func(context.Context, string, []guideline.Item) ([]guideline.Item, error) {
			return nil, guideline.ErrVersionNotFound
		},
	}
	rec := postJSON(t, newGuidelineTestHandler(store), "/guidelines/missing/items",
		`{"items":[{"ref":"G1#p1","text":"text"}]}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
