package rag

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
)

// Embedder maps text to a fixed-dimension, L2-normalized vector. Both
// strategies used for one index must agree on Dimension; mixing dimensions
// across an index is an error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// wordSplit matches runs of non-word runes. Unicode classes keep Arabic
// guideline text tokenizable.
var wordSplit = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Tokenize lower-cases text and splits it on non-word boundaries, dropping
// empty tokens. Shared by the hash embedder, the lexical retrieval fallback
// and the BM25 scorer so all signals agree on what a token is.
func Tokenize(text string) []string {
	parts := wordSplit.Split(strings.ToLower(text), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// l2Normalize scales vec to unit Euclidean norm in place. The zero vector
// is left untouched.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// HashEmbedder is the deterministic local embedding strategy: a
// bag-of-hashed-tokens vector with no trained model and no network
// dependency. Each token's SHA-256 hash selects a dimension (first four
// bytes, little-endian, mod dim) and a weight in [0.5, 1.5) (next four
// bytes mod 1000, scaled), accumulated additively and L2-normalized.
//
// Accuracy is intentionally weaker than a learned embedding; it exists so
// that indexing and querying never hard-fail on provider outages.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder producing dim-length vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Dimension returns the vector length.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed returns the bag-of-hashed-tokens vector for text. It is
// reproducible across calls and returns the zero vector for input with no
// tokens. It never fails.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	for _, tok := range tokens {
		h := sha256.Sum256([]byte(tok))
		idx := int(binary.LittleEndian.Uint32(h[0:4]) % uint32(e.dim))
		val := float64(binary.LittleEndian.Uint32(h[4:8])%1000) / 1000.0
		vec[idx] += float32(0.5 + val)
	}

	l2Normalize(vec)
	return vec, nil
}

// FallbackEmbedder tries a primary (remote) embedder and falls back to the
// local hash embedder on any failure. Embedding must never hard-fail the
// indexing or query path, so the fallback result is returned instead of the
// primary error.
type FallbackEmbedder struct {
	primary  Embedder
	fallback *HashEmbedder
	logger   *slog.Logger
}

// NewFallbackEmbedder wraps primary with the local fallback. Both must
// produce vectors of the same dimension.
func NewFallbackEmbedder(primary Embedder, fallback *HashEmbedder, logger *slog.Logger) (*FallbackEmbedder, error) {
	if primary.Dimension() != fallback.Dimension() {
		return nil, fmt.Errorf("embedder dimension mismatch: primary=%d fallback=%d",
			primary.Dimension(), fallback.Dimension())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackEmbedder{primary: primary, fallback: fallback, logger: logger}, nil
}

// Dimension returns the shared vector length.
func (e *FallbackEmbedder) Dimension() int { return e.fallback.Dimension() }

// Embed returns the primary embedding, or the local hash embedding when the
// primary call fails for any reason (network, auth, malformed response,
// timeout). The primary error is logged, never propagated.
func (e *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.primary.Embed(ctx, text)
	if err == nil && len(vec) == e.Dimension() {
		return vec, nil
	}
	if err != nil {
		e.logger.Warn("primary embedder failed, using local fallback", "error", err)
	} else {
		e.logger.Warn("primary embedder returned wrong dimension, using local fallback",
			"got", len(vec), "want", e.Dimension())
	}
	return e.fallback.Embed(ctx, text)
}
