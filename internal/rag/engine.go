package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sima-platform/guidance/internal/guideline"
)

// Refusal answer strings. Refusals are first-class outcomes, not errors:
// they return with success status and an explanatory answer.
const (
	noIndexAnswer = "Cannot answer: this guideline version has not been indexed yet. " +
		"Run the index operation for it first."
	noEvidenceAnswer = "Cannot answer: the indexed guidelines contain no sufficient " +
		"evidence for this question."
)

// GuidelineSource supplies immutable guideline versions and their items.
// Implemented by guideline.Store; defined here by the consumer.
type GuidelineSource interface {
	Version(ctx context.Context, id string) (guideline.Version, error)
	LatestVersionID(ctx context.Context) (string, error)
	Items(ctx context.Context, versionID string) ([]guideline.Item, error)
}

// Chunks is the index store contract the engine depends on.
// Implemented by ChunkStore.
type Chunks interface {
	CountByVersion(ctx context.Context, versionID string) (int, error)
	DeleteByVersion(ctx context.Context, versionID string) (int64, error)
	InsertBatch(ctx context.Context, chunks []Chunk, embeddings [][]float32) error
	Search(ctx context.Context, q SearchQuery) ([]Candidate, error)
	VectorCapable() bool
}

// RunRecorder persists the audit trail. Implemented by Recorder.
type RunRecorder interface {
	Record(ctx context.Context, run Run) (uuid.UUID, error)
}

// Params carries the tunables the engine needs from configuration.
type Params struct {
	ChunkMaxChars      int
	ChunkOverlap       int
	RetrieveCandidates int
	RerankTopK         int
	AnswerChunks       int
	AnswerPreviewChars int
	EmbedProvider      string
}

// Engine orchestrates the write path (chunk, embed, persist) and the read
// path (embed, retrieve, rerank, synthesize, record).
//
// Safe for concurrent use. Queries run lock-free; indexing is serialized
// per guideline version so a forced reindex cannot race another reindex of
// the same version.
type Engine struct {
	guidelines GuidelineSource
	chunks     Chunks
	embedder   Embedder
	reranker   *Reranker
	recorder   RunRecorder
	params     Params
	logger     *slog.Logger

	mu           sync.Mutex
	versionLocks map[string]*sync.Mutex
}

// NewEngine creates an engine. logger may be nil.
func NewEngine(
	guidelines GuidelineSource,
	chunks Chunks,
	embedder Embedder,
	reranker *Reranker,
	recorder RunRecorder,
	params Params,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		guidelines:   guidelines,
		chunks:       chunks,
		embedder:     embedder,
		reranker:     reranker,
		recorder:     recorder,
		params:       params,
		logger:       logger,
		versionLocks: make(map[string]*sync.Mutex),
	}
}

// Status reports the active capabilities for the health surface.
func (e *Engine) Status() Status {
	return Status{
		VectorEnabled: e.chunks.VectorCapable(),
		BM25Enabled:   e.reranker.bm25Enabled,
		FuzzyEnabled:  e.reranker.fuzzyEnabled,
		EmbedProvider: e.params.EmbedProvider,
	}
}

// lockVersion serializes indexing per guideline version.
func (e *Engine) lockVersion(versionID string) func() {
	e.mu.Lock()
	lock, ok := e.versionLocks[versionID]
	if !ok {
		lock = &sync.Mutex{}
		e.versionLocks[versionID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Index builds or refreshes the chunk index for one guideline version.
//
// Idempotent without force: when chunks already exist the call is a no-op
// reporting the existing count. With force it deletes and fully recreates
// the version's chunks: a destructive replace, not a merge.
//
// The chunk set commits in one batch. A failed or cancelled run leaves no
// partial index behind, so a retry indexes from scratch instead of
// reporting the truncated set as complete.
func (e *Engine) Index(ctx context.Context, versionID string, force bool) (IndexResult, error) {
	if _, err := e.guidelines.Version(ctx, versionID); err != nil {
		return IndexResult{}, err
	}

	unlock := e.lockVersion(versionID)
	defer unlock()

	existing, err := e.chunks.CountByVersion(ctx, versionID)
	if err != nil {
		return IndexResult{}, err
	}
	if existing > 0 && !force {
		return IndexResult{Chunks: existing, AlreadyIndexed: true}, nil
	}
	if force {
		if _, err := e.chunks.DeleteByVersion(ctx, versionID); err != nil {
			return IndexResult{}, err
		}
	}

	items, err := e.guidelines.Items(ctx, versionID)
	if err != nil {
		return IndexResult{}, err
	}

	var (
		chunks     []Chunk
		embeddings [][]float32
	)
	for _, item := range items {
		for _, span := range SplitText(item.Text, e.params.ChunkMaxChars, e.params.ChunkOverlap) {
			embedding, err := e.embedder.Embed(ctx, span)
			if err != nil {
				return IndexResult{}, fmt.Errorf("embedding chunk of item %q: %w", item.ID, err)
			}

			chunks = append(chunks, Chunk{
				ID:                 uuid.New(),
				GuidelineVersionID: versionID,
				GuideItemID:        item.ID,
				Ref:                item.Ref,
				Content:            span,
				Meta: map[string]any{
					"title": item.Title,
					"tags":  item.Tags,
				},
			})
			embeddings = append(embeddings, embedding)
		}
	}

	if err := e.chunks.InsertBatch(ctx, chunks, embeddings); err != nil {
		return IndexResult{}, fmt.Errorf("persisting chunk index for %q: %w", versionID, err)
	}

	e.logger.Info("indexed guideline version",
		"version", versionID, "items", len(items), "chunks", len(chunks), "force", force)
	return IndexResult{Chunks: len(chunks)}, nil
}

// Query embeds the query, retrieves candidates for one guideline version
// and returns the reranked top topK. Used by the inspection endpoint; Ask
// is the answering path.
func (e *Engine) Query(ctx context.Context, versionID, query string, topK int) ([]RankedChunk, error) {
	if topK <= 0 {
		topK = 10
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates := e.params.RetrieveCandidates
	if topK > candidates {
		candidates = topK
	}

	found, err := e.chunks.Search(ctx, SearchQuery{
		GuidelineVersionID: versionID,
		Vector:             vec,
		Text:               query,
		TopK:               candidates,
	})
	if err != nil {
		return nil, err
	}

	return e.reranker.Rerank(query, found, topK), nil
}

// Ask answers a question against one guideline version, or refuses.
//
// When the version has no indexed chunks it refuses with ModeNoIndex
// before any retrieval. When reranking yields zero candidates it refuses
// with ModeNoEvidence. Otherwise it synthesizes a strictly extractive
// answer from the top chunks. Every outcome, refusals included, is
// recorded for audit.
func (e *Engine) Ask(ctx context.Context, question, versionID string) (Answer, error) {
	if versionID == "" {
		latest, err := e.guidelines.LatestVersionID(ctx)
		if err != nil {
			return Answer{}, err
		}
		versionID = latest
	}

	count, err := e.chunks.CountByVersion(ctx, versionID)
	if err != nil {
		return Answer{}, err
	}
	if count == 0 {
		return e.refuse(ctx, question, versionID, ModeNoIndex, noIndexAnswer, nil), nil
	}

	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("embedding question: %w", err)
	}

	candidates, err := e.chunks.Search(ctx, SearchQuery{
		GuidelineVersionID: versionID,
		Vector:             vec,
		Text:               question,
		TopK:               e.params.RetrieveCandidates,
	})
	if err != nil {
		return Answer{}, err
	}

	ranked := e.reranker.Rerank(question, candidates, e.params.RerankTopK)
	if len(ranked) == 0 {
		return e.refuse(ctx, question, versionID, ModeNoEvidence, noEvidenceAnswer, ranked), nil
	}

	used := ranked
	if len(used) > e.params.AnswerChunks {
		used = used[:e.params.AnswerChunks]
	}

	snippets := make([]string, 0, len(used))
	citations := make([]Citation, 0, len(used))
	for _, r := range used {
		snippets = append(snippets, headRunes(strings.TrimSpace(r.Chunk.Content), e.params.AnswerPreviewChars))
		citations = append(citations, Citation{
			Ref:     r.Chunk.Ref,
			ChunkID: r.Chunk.ID,
			Score:   r.Final,
		})
	}

	answer := Answer{
		Answer:    strings.Join(snippets, " "),
		Citations: citations,
		Mode:      ModeExtractive,
		Explain:   e.buildEvidence(versionID, ModeExtractive, ranked),
	}
	answer.ChatRunID = e.record(ctx, Run{
		Question: question,
		Mode:     ModeExtractive,
		Answer:   &answer.Answer,
		Evidence: answer.Explain,
	})

	return answer, nil
}

// refuse assembles a refusal outcome and records it.
func (e *Engine) refuse(ctx context.Context, question, versionID, mode, text string, ranked []RankedChunk) Answer {
	answer := Answer{
		Answer:    text,
		Citations: []Citation{},
		Mode:      mode,
		Explain:   e.buildEvidence(versionID, mode, ranked),
	}
	answer.ChatRunID = e.record(ctx, Run{
		Question: question,
		Mode:     mode,
		Answer:   nil,
		Evidence: answer.Explain,
	})
	return answer
}

// record persists the run, logging and swallowing storage failures: audit
// recording must never fail the user-facing response.
func (e *Engine) record(ctx context.Context, run Run) uuid.UUID {
	id, err := e.recorder.Record(ctx, run)
	if err != nil {
		e.logger.Error("failed to record chat run", "mode", run.Mode, "error", err)
		return uuid.Nil
	}
	return id
}

func (e *Engine) buildEvidence(versionID, mode string, ranked []RankedChunk) Evidence {
	items := make([]EvidenceItem, 0, len(ranked))
	for _, r := range ranked {
		items = append(items, EvidenceItem{
			Ref:     r.Chunk.Ref,
			Sim:     r.Sim,
			BM25:    r.BM25,
			Fuzz:    r.Fuzz,
			Final:   r.Final,
			Preview: headRunes(r.Chunk.Content, 220),
		})
	}
	return Evidence{
		GuidelineVersionID: versionID,
		RetrievalTop:       items,
		Policy: Policy{
			Mode:            mode,
			NoHallucination: true,
			AnswerClaims:    "Only supported by retrieved chunks; otherwise refuse",
		},
	}
}
