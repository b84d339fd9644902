package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
)

// lexicalScanLimit bounds how many chunks the fallback path loads per
// version. Versions larger than this lose recall in fallback mode, which is
// already the documented lower-quality path.
const lexicalScanLimit = 2000

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// execer abstracts the pool and a transaction for the insert statements.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ChunkStore persists chunks and serves candidate retrieval.
//
// When the backing database has pgvector, Search runs a nearest-neighbor
// query over the vector column. Without it, Search degrades to lexical
// token-overlap scoring, a materially worse ranking that callers must
// treat as lower-confidence. The capability is probed once at startup and
// fixed for the process lifetime.
type ChunkStore struct {
	db            DB
	vectorCapable bool
	dim           int
	logger        *slog.Logger
}

// NewChunkStore creates a chunk store. dim is the embedding dimension every
// stored vector must have; logger may be nil.
func NewChunkStore(db DB, vectorCapable bool, dim int, logger *slog.Logger) *ChunkStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChunkStore{db: db, vectorCapable: vectorCapable, dim: dim, logger: logger}
}

// VectorCapable reports whether the pgvector path is active.
func (s *ChunkStore) VectorCapable() bool { return s.vectorCapable }

// CountByVersion returns the number of chunks indexed for a guideline
// version.
func (s *ChunkStore) CountByVersion(ctx context.Context, versionID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM rag_chunks WHERE guideline_version_id = $1`,
		versionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks for %q: %w", versionID, err)
	}
	return count, nil
}

// DeleteByVersion removes every chunk of a guideline version. Destructive
// and non-reversible; only the forced reindex path calls it.
func (s *ChunkStore) DeleteByVersion(ctx context.Context, versionID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM rag_chunks WHERE guideline_version_id = $1`,
		versionID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for %q: %w", versionID, err)
	}
	s.logger.Debug("deleted chunks", "version", versionID, "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// Insert persists one chunk with its embedding. The embedding is always
// stored as JSON for auditability; the vector column is additionally
// populated when pgvector is active.
func (s *ChunkStore) Insert(ctx context.Context, chunk Chunk, embedding []float32) error {
	return s.insert(ctx, s.db, chunk, embedding)
}

// InsertBatch persists a chunk set in one transaction. Either every chunk
// commits or none does, so a failure mid-batch never leaves a partial index
// that a later count would mistake for a complete one.
func (s *ChunkStore) InsertBatch(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("batch of %d chunks with %d embeddings", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning chunk batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, chunk := range chunks {
		if err := s.insert(ctx, tx, chunk, embeddings[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunk batch: %w", err)
	}
	return nil
}

func (s *ChunkStore) insert(ctx context.Context, db execer, chunk Chunk, embedding []float32) error {
	if len(embedding) != s.dim {
		return fmt.Errorf("chunk %s: embedding dimension %d, index uses %d",
			chunk.ID, len(embedding), s.dim)
	}

	meta, err := json.Marshal(chunk.Meta)
	if err != nil {
		return fmt.Errorf("marshaling chunk meta: %w", err)
	}
	embJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("marshaling embedding: %w", err)
	}

	if s.vectorCapable {
		_, err = db.Exec(ctx, `
			INSERT INTO rag_chunks
				(id, guideline_version_id, guide_item_id, ref, content, meta, embedding, embedding_vec)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			chunk.ID, chunk.GuidelineVersionID, chunk.GuideItemID,
			chunk.Ref, chunk.Content, meta, embJSON, pgvector.NewVector(embedding),
		)
	} else {
		_, err = db.Exec(ctx, `
			INSERT INTO rag_chunks
				(id, guideline_version_id, guide_item_id, ref, content, meta, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			chunk.ID, chunk.GuidelineVersionID, chunk.GuideItemID,
			chunk.Ref, chunk.Content, meta, embJSON,
		)
	}
	if err != nil {
		return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// VectorColumnDimension reads the dimension declared for the vector column.
// Startup compares it against the configured embedding dimension; with
// pgvector active a mismatch would fail every insert with an opaque
// database error.
func VectorColumnDimension(ctx context.Context, db DB) (int, error) {
	var dim int
	err := db.QueryRow(ctx, `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'rag_chunks'::regclass AND attname = 'embedding_vec'`,
	).Scan(&dim)
	if err != nil {
		return 0, fmt.Errorf("reading vector column dimension: %w", err)
	}
	return dim, nil
}

// Search returns up to q.TopK candidates for one guideline version, best
// first. Results never cross guideline versions.
func (s *ChunkStore) Search(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	if q.TopK <= 0 {
		q.TopK = 20
	}
	if s.vectorCapable {
		return s.vectorSearch(ctx, q)
	}
	return s.lexicalSearch(ctx, q)
}

// vectorSearch ranks by L2 distance on the pgvector column. With unit
// vectors, L2 distance is monotonic with cosine distance, and the
// 1/(1+distance) transform maps it into (0, 1].
func (s *ChunkStore) vectorSearch(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	vec := pgvector.NewVector(q.Vector)
	rows, err := s.db.Query(ctx, `
		SELECT id, guideline_version_id, guide_item_id, ref, content, meta, created_at,
		       1.0 / (1.0 + (embedding_vec <-> $2)) AS score
		FROM rag_chunks
		WHERE guideline_version_id = $1 AND embedding_vec IS NOT NULL
		ORDER BY embedding_vec <-> $2
		LIMIT $3`,
		q.GuidelineVersionID, vec, q.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search for %q: %w", q.GuidelineVersionID, err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var meta []byte
		if err := rows.Scan(
			&c.Chunk.ID, &c.Chunk.GuidelineVersionID, &c.Chunk.GuideItemID,
			&c.Chunk.Ref, &c.Chunk.Content, &meta, &c.Chunk.CreatedAt, &c.Score,
		); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		c.Chunk.Meta = parseMeta(meta, s.logger, c.Chunk.ID)
		out = append(out, c)
	}
	return out, rows.Err()
}

// lexicalSearch scores candidates by the size of the token-set intersection
// between the query text and the chunk text. Chunks with no overlap are
// dropped.
func (s *ChunkStore) lexicalSearch(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, guideline_version_id, guide_item_id, ref, content, meta, created_at
		FROM rag_chunks
		WHERE guideline_version_id = $1
		ORDER BY created_at, id
		LIMIT $2`,
		q.GuidelineVersionID, lexicalScanLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("lexical search for %q: %w", q.GuidelineVersionID, err)
	}
	defer rows.Close()

	queryTokens := make(map[string]struct{})
	for _, tok := range Tokenize(q.Text) {
		queryTokens[tok] = struct{}{}
	}

	var out []Candidate
	for rows.Next() {
		var c Candidate
		var meta []byte
		if err := rows.Scan(
			&c.Chunk.ID, &c.Chunk.GuidelineVersionID, &c.Chunk.GuideItemID,
			&c.Chunk.Ref, &c.Chunk.Content, &meta, &c.Chunk.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		c.Chunk.Meta = parseMeta(meta, s.logger, c.Chunk.ID)

		overlap := 0
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(c.Chunk.Content) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := queryTokens[tok]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			c.Score = float64(overlap)
			out = append(out, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > q.TopK {
		out = out[:q.TopK]
	}
	return out, nil
}

func parseMeta(raw []byte, logger *slog.Logger, chunkID uuid.UUID) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		logger.Warn("failed to parse chunk meta", "chunk_id", chunkID, "error", err)
		return nil
	}
	return meta
}
