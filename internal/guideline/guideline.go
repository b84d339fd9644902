// Package guideline stores regulatory guideline snapshots.
//
// A Version is an immutable snapshot of one regulatory source; an Item is a
// titled or untitled text passage belonging to exactly one Version, carrying
// a stable reference string used for citation. Both are write-once: the
// indexing and answering pipeline reads them but never mutates them.
package guideline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrVersionNotFound indicates the referenced guideline version does
	// not exist.
	ErrVersionNotFound = errors.New("guideline version not found")

	// ErrNoVersions indicates no guideline version has been created yet.
	ErrNoVersions = errors.New("no guideline versions")
)

// Version is an immutable snapshot of a regulatory source.
type Version struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Region    string    `json:"region,omitempty"`
	URL       string    `json:"url,omitempty"`
	PDFURL    string    `json:"pdf_url,omitempty"`
	SHA256    string    `json:"sha256,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is one text passage of a guideline version. Ref is the opaque
// citation reference (e.g. "document#page=3&block=2") inherited by every
// chunk produced from the item.
type Item struct {
	ID                 string         `json:"id"`
	GuidelineVersionID string         `json:"guideline_version_id"`
	Ref                string         `json:"ref"`
	Title              string         `json:"title,omitempty"`
	Text               string         `json:"text"`
	Tags               map[string]any `json:"tags,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// DB is the subset of pgxpool.Pool the store needs. Defined by the consumer
// so tests and transactions can stand in for the pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists guideline versions and items in PostgreSQL.
// Safe for concurrent use.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a guideline store. logger may be nil.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// CreateVersion inserts a new guideline version. A missing ID is generated.
func (s *Store) CreateVersion(ctx context.Context, v Version) (Version, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO guideline_versions (id, source, region, url, pdf_url, sha256)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		v.ID, v.Source, v.Region, v.URL, v.PDFURL, v.SHA256,
	).Scan(&v.CreatedAt)
	if err != nil {
		return Version{}, fmt.Errorf("inserting guideline version: %w", err)
	}

	s.logger.Debug("created guideline version", "id", v.ID, "source", v.Source)
	return v, nil
}

// Version fetches a guideline version by id.
func (s *Store) Version(ctx context.Context, id string) (Version, error) {
	var v Version
	err := s.db.QueryRow(ctx, `
		SELECT id, source, COALESCE(region, ''), COALESCE(url, ''),
		       COALESCE(pdf_url, ''), COALESCE(sha256, ''), created_at
		FROM guideline_versions WHERE id = $1`, id,
	).Scan(&v.ID, &v.Source, &v.Region, &v.URL, &v.PDFURL, &v.SHA256, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Version{}, fmt.Errorf("%w: %s", ErrVersionNotFound, id)
	}
	if err != nil {
		return Version{}, fmt.Errorf("fetching guideline version %q: %w", id, err)
	}
	return v, nil
}

// LatestVersionID returns the id of the most recently created version.
// Returns ErrNoVersions when the table is empty.
func (s *Store) LatestVersionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		SELECT id FROM guideline_versions
		ORDER BY created_at DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoVersions
	}
	if err != nil {
		return "", fmt.Errorf("fetching latest guideline version: %w", err)
	}
	return id, nil
}

// ListVersions returns versions ordered newest first.
func (s *Store) ListVersions(ctx context.Context, limit int) ([]Version, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, source, COALESCE(region, ''), COALESCE(url, ''),
		       COALESCE(pdf_url, ''), COALESCE(sha256, ''), created_at
		FROM guideline_versions
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing guideline versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.Source, &v.Region, &v.URL, &v.PDFURL, &v.SHA256, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning guideline version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// AddItems appends items to a guideline version. Item IDs are generated
// when missing; the version must exist.
func (s *Store) AddItems(ctx context.Context, versionID string, items []Item) ([]Item, error) {
	if _, err := s.Version(ctx, versionID); err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.GuidelineVersionID = versionID

		tags, err := json.Marshal(it.Tags)
		if err != nil {
			return nil, fmt.Errorf("marshaling tags for item %q: %w", it.ID, err)
		}

		err = s.db.QueryRow(ctx, `
			INSERT INTO guide_items (id, guideline_version_id, ref, title, text, tags)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at`,
			it.ID, versionID, it.Ref, it.Title, it.Text, tags,
		).Scan(&it.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("inserting guide item %q: %w", it.ID, err)
		}
		out = append(out, it)
	}

	s.logger.Debug("added guide items", "version", versionID, "count", len(out))
	return out, nil
}

// Items returns all items of a guideline version in insertion order.
func (s *Store) Items(ctx context.Context, versionID string) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, guideline_version_id, ref, COALESCE(title, ''), text, tags, created_at
		FROM guide_items
		WHERE guideline_version_id = $1
		ORDER BY created_at, id`, versionID)
	if err != nil {
		return nil, fmt.Errorf("listing guide items for %q: %w", versionID, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var tags []byte
		if err := rows.Scan(&it.ID, &it.GuidelineVersionID, &it.Ref, &it.Title, &it.Text, &tags, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning guide item: %w", err)
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &it.Tags); err != nil {
				s.logger.Warn("failed to parse item tags", "item_id", it.ID, "error", err)
			}
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
