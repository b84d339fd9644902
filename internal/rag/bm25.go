package rag

import "math"

// Okapi BM25 parameters. Values match the rank_bm25 defaults the reference
// deployment tuned against; changing them shifts fused scores platform-wide.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// bm25Okapi scores lexical relevance over one candidate batch treated as a
// corpus. It is deliberately batch-scoped: IDF statistics come from the
// current candidates only, never from the whole index.
type bm25Okapi struct {
	docFreqs []map[string]int
	docLen   []int
	avgdl    float64
	idf      map[string]float64
}

// newBM25 builds the scorer from tokenized documents.
func newBM25(docs [][]string) *bm25Okapi {
	b := &bm25Okapi{
		docFreqs: make([]map[string]int, len(docs)),
		docLen:   make([]int, len(docs)),
		idf:      make(map[string]float64),
	}

	df := make(map[string]int)
	total := 0
	for i, doc := range docs {
		freqs := make(map[string]int, len(doc))
		for _, tok := range doc {
			freqs[tok]++
		}
		for tok := range freqs {
			df[tok]++
		}
		b.docFreqs[i] = freqs
		b.docLen[i] = len(doc)
		total += len(doc)
	}
	if len(docs) > 0 {
		b.avgdl = float64(total) / float64(len(docs))
	}

	// IDF with the rank_bm25 negative floor: terms appearing in more than
	// half the batch get epsilon times the average IDF instead of a
	// negative weight.
	n := float64(len(docs))
	var idfSum float64
	var negative []string
	for tok, freq := range df {
		idf := math.Log((n - float64(freq) + 0.5) / (float64(freq) + 0.5))
		b.idf[tok] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, tok)
		}
	}
	if len(b.idf) > 0 {
		eps := bm25Epsilon * idfSum / float64(len(b.idf))
		for _, tok := range negative {
			b.idf[tok] = eps
		}
	}

	return b
}

// scores returns the BM25 score of the query against every document in the
// batch, in document order.
func (b *bm25Okapi) scores(query []string) []float64 {
	out := make([]float64, len(b.docFreqs))
	if b.avgdl == 0 {
		return out
	}

	for i, freqs := range b.docFreqs {
		norm := bm25K1 * (1 - bm25B + bm25B*float64(b.docLen[i])/b.avgdl)
		var score float64
		for _, tok := range query {
			f := float64(freqs[tok])
			if f == 0 {
				continue
			}
			score += b.idf[tok] * f * (bm25K1 + 1) / (f + norm)
		}
		out[i] = score
	}
	return out
}
