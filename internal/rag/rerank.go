package rag

import (
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// fuzzWindow bounds how much of a candidate the fuzzy matcher sees. Token
// set ratio is quadratic-ish in input size and the head of a chunk carries
// its topic.
const fuzzWindow = 800

// Weights are the fusion coefficients combining the three ranking signals.
// The defaults favor semantic similarity and let the lexical and fuzzy
// signals break ties and compensate for the weak hash-embedding fallback.
type Weights struct {
	Sim  float64
	BM25 float64
	Fuzz float64
}

// DefaultWeights returns the platform fusion weights.
func DefaultWeights() Weights {
	return Weights{Sim: 0.55, BM25: 0.30, Fuzz: 0.15}
}

// Reranker fuses the retrieval similarity, a batch-scoped BM25 score and a
// token-set fuzzy ratio into one ranking. Either optional signal can be
// disabled by configuration, in which case it contributes 0 for every
// candidate.
type Reranker struct {
	weights      Weights
	bm25Enabled  bool
	fuzzyEnabled bool
}

// NewReranker creates a reranker with the given weights and signal flags.
func NewReranker(weights Weights, bm25Enabled, fuzzyEnabled bool) *Reranker {
	return &Reranker{weights: weights, bm25Enabled: bm25Enabled, fuzzyEnabled: fuzzyEnabled}
}

// Rerank scores candidates against the question and returns the top topK,
// sorted descending by fused score. The sort is stable: ties keep the
// original candidate order.
func (r *Reranker) Rerank(question string, candidates []Candidate, topK int) []RankedChunk {
	if len(candidates) == 0 {
		return nil
	}

	var bm25Scores []float64
	if r.bm25Enabled {
		docs := make([][]string, len(candidates))
		for i, c := range candidates {
			docs[i] = Tokenize(c.Chunk.Content)
		}
		bm25Scores = newBM25(docs).scores(Tokenize(question))
	}

	ranked := make([]RankedChunk, len(candidates))
	for i, c := range candidates {
		var bm25, fuzz float64
		if bm25Scores != nil {
			bm25 = bm25Scores[i]
		}
		if r.fuzzyEnabled {
			fuzz = float64(fuzzy.TokenSetRatio(question, headRunes(c.Chunk.Content, fuzzWindow))) / 100.0
		}

		ranked[i] = RankedChunk{
			Final: r.weights.Sim*c.Score + r.weights.BM25*bm25 + r.weights.Fuzz*fuzz,
			Sim:   c.Score,
			BM25:  bm25,
			Fuzz:  fuzz,
			Chunk: c.Chunk,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Final > ranked[j].Final
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// headRunes returns the first n runes of s.
func headRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
