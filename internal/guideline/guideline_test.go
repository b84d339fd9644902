package guideline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sima-platform/guidance/internal/guideline"
	"github.com/sima-platform/guidance/internal/log"
	"github.com/sima-platform/guidance/internal/testutil"
)

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := guideline.NewStore(testDB.Pool, log.NewNop())

	t.Run("empty store has no latest version", func(t *testing.T) {
		_, err := store.LatestVersionID(ctx)
		if !errors.Is(err, guideline.ErrNoVersions) {
			t.Errorf("err = %v, want ErrNoVersions", err)
		}
	})

	t.Run("create and fetch version", func(t *testing.T) {
		created, err := store.CreateVersion(ctx, guideline.Version{
			Source: "dubai-municipality",
			Region: "DXB",
			URL:    "https://example.test/guidelines.pdf",
			SHA256: "abc123",
		})
		if err != nil {
			t.Fatalf("CreateVersion() error = %v", err)
		}
		if created.ID == "" {
			t.Fatal("expected a generated version id")
		}
		if created.CreatedAt.IsZero() {
			t.Error("expected a populated CreatedAt")
		}

		got, err := store.Version(ctx, created.ID)
		if err != nil {
			t.Fatalf("Version() error = %v", err)
		}
		if got.Source != "dubai-municipality" || got.Region != "DXB" || got.SHA256 != "abc123" {
			t.Errorf("Version() = %+v", got)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := store.Version(ctx, "missing")
		if !errors.Is(err, guideline.ErrVersionNotFound) {
			t.Errorf("err = %v, want ErrVersionNotFound", err)
		}
	})

	t.Run("latest version tracks newest", func(t *testing.T) {
		newer, err := store.CreateVersion(ctx, guideline.Version{Source: "abu-dhabi-dmt"})
		if err != nil {
			t.Fatalf("CreateVersion() error = %v", err)
		}

		latest, err := store.LatestVersionID(ctx)
		if err != nil {
			t.Fatalf("LatestVersionID() error = %v", err)
		}
		if latest != newer.ID {
			t.Errorf("latest = %q, want %q", latest, newer.ID)
		}

		versions, err := store.ListVersions(ctx, 10)
		if err != nil {
			t.Fatalf("ListVersions() error = %v", err)
		}
		if len(versions) != 2 || versions[0].ID != newer.ID {
			t.Errorf("ListVersions() = %+v, want newest first", versions)
		}
	})

	t.Run("add and list items", func(t *testing.T) {
		v, err := store.CreateVersion(ctx, guideline.Version{Source: "sharjah-spc"})
		if err != nil {
			t.Fatalf("CreateVersion() error = %v", err)
		}

		added, err := store.AddItems(ctx, v.ID, []guideline.Item{
			{Ref: "G1#p1", Title: "Setbacks", Text: "Coastal setback is 35% of plot depth.",
				Tags: map[string]any{"topic": "setback"}},
			{Ref: "G1#p2", Text: "Maximum height is four floors."},
		})
		if err != nil {
			t.Fatalf("AddItems() error = %v", err)
		}
		if len(added) != 2 || added[0].ID == "" {
			t.Fatalf("AddItems() = %+v, want 2 items with generated ids", added)
		}

		items, err := store.Items(ctx, v.ID)
		if err != nil {
			t.Fatalf("Items() error = %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Items() returned %d, want 2", len(items))
		}
		if items[0].Ref != "G1#p1" || items[1].Ref != "G1#p2" {
			t.Errorf("items out of insertion order: %+v", items)
		}
		if items[0].Tags["topic"] != "setback" {
			t.Errorf("tags = %v, want round-tripped topic", items[0].Tags)
		}
	})

	t.Run("add items to unknown version", func(t *testing.T) {
		_, err := store.AddItems(ctx, "missing", []guideline.Item{{Ref: "r", Text: "t"}})
		if !errors.Is(err, guideline.ErrVersionNotFound) {
			t.Errorf("err = %v, want ErrVersionNotFound", err)
		}
	})
}
