package rag

import (
	"time"

	"github.com/google/uuid"
)

// Answer modes. The wire values are part of the platform contract and are
// consumed by the frontend and by auditors.
const (
	// ModeExtractive marks an answered request: the answer text is a
	// concatenation of retrieved chunk previews, nothing else.
	ModeExtractive = "extractive_rag"

	// ModeNoIndex marks a refusal because the target guideline version has
	// no indexed chunks.
	ModeNoIndex = "refuse_no_index"

	// ModeNoEvidence marks a refusal because retrieval and reranking
	// produced no candidates for the question.
	ModeNoEvidence = "refuse_no_evidence"
)

// Chunk is a bounded, overlapping span of one guide item's text, stored
// with its citation reference and embedding. Chunks are created only by
// indexing and never updated in place.
type Chunk struct {
	ID                 uuid.UUID      `json:"id"`
	GuidelineVersionID string         `json:"guideline_version_id"`
	GuideItemID        string         `json:"guide_item_id"`
	Ref                string         `json:"ref"`
	Content            string         `json:"content"`
	Meta               map[string]any `json:"meta,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// Candidate is a retrieval-stage result: a chunk with its similarity score
// (higher is more relevant).
type Candidate struct {
	Score float64
	Chunk Chunk
}

// RankedChunk is a reranked candidate carrying every per-signal score. The
// full list is persisted as evidence so an auditor can see why each chunk
// was (or was not) used.
type RankedChunk struct {
	Final float64 `json:"final"`
	Sim   float64 `json:"sim"`
	BM25  float64 `json:"bm25"`
	Fuzz  float64 `json:"fuzz"`
	Chunk Chunk   `json:"-"`
}

// SearchQuery scopes a retrieval call to one guideline version.
//
// Vector drives the primary pgvector path. Text carries the original query
// for the lexical fallback; deriving fallback tokens from the raw text
// (rather than a stringified vector) is a deliberate divergence from the
// reference behavior.
type SearchQuery struct {
	GuidelineVersionID string
	Vector             []float32
	Text               string
	TopK               int
}

// Citation points at one chunk used to assemble an answer.
type Citation struct {
	Ref     string    `json:"ref"`
	ChunkID uuid.UUID `json:"chunk_id"`
	Score   float64   `json:"score"`
}

// EvidenceItem is one reranked candidate in the persisted audit trail.
type EvidenceItem struct {
	Ref     string  `json:"ref"`
	Sim     float64 `json:"sim"`
	BM25    float64 `json:"bm25"`
	Fuzz    float64 `json:"fuzz"`
	Final   float64 `json:"final"`
	Preview string  `json:"preview"`
}

// Policy documents the answering contract inside every audit record.
type Policy struct {
	Mode            string `json:"mode"`
	NoHallucination bool   `json:"no_hallucination"`
	AnswerClaims    string `json:"answer_claims"`
}

// Evidence is the explainability bundle persisted with every chat run.
type Evidence struct {
	GuidelineVersionID string         `json:"guideline_version_id"`
	RetrievalTop       []EvidenceItem `json:"retrieval_top"`
	Policy             Policy         `json:"policy"`
}

// Answer is the outcome of one ask call: either an extractive answer with
// citations, or a refusal with an explanatory answer string and no
// citations. Mode distinguishes the cases.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Mode      string     `json:"mode"`
	Explain   Evidence   `json:"explain"`
	ChatRunID uuid.UUID  `json:"chat_run_id,omitempty"`
}

// IndexResult reports the outcome of an index call.
type IndexResult struct {
	// Chunks is the number of chunks now present for the version: the
	// created count after indexing, or the existing count when the version
	// was already indexed and force was false.
	Chunks int

	// AlreadyIndexed is true when the call was a no-op.
	AlreadyIndexed bool
}

// Status reports which optional capabilities are active. Consumed by the
// health endpoint for operators; the engine itself routes on its own flags.
type Status struct {
	VectorEnabled bool   `json:"vector_enabled"`
	BM25Enabled   bool   `json:"bm25_enabled"`
	FuzzyEnabled  bool   `json:"fuzzy_enabled"`
	EmbedProvider string `json:"embed_provider"`
}
