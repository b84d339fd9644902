package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidChunkWindow indicates the chunk overlap is not smaller than
	// the chunk window. This is a startup configuration error: an overlap
	// equal to or larger than the window would make chunking loop forever.
	ErrInvalidChunkWindow = errors.New("invalid chunk window")

	// ErrInvalidEmbedProvider indicates an unknown embedding provider.
	ErrInvalidEmbedProvider = errors.New("invalid embed provider")

	// ErrInvalidEmbedDimension indicates a non-positive embedding dimension.
	ErrInvalidEmbedDimension = errors.New("invalid embed dimension")

	// ErrMissingAPIKey indicates the OpenAI provider is selected without
	// credentials.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidRerankWeights indicates a negative or all-zero fusion weight
	// configuration.
	ErrInvalidRerankWeights = errors.New("invalid rerank weights")

	// ErrInvalidTopK indicates a non-positive candidate or rerank depth.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")
)

// Validate checks the configuration for fatal misconfiguration.
// It is called once at startup; per-request code may assume a valid Config.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ChunkMaxChars <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkMaxChars {
		return fmt.Errorf("%w: max_chars=%d overlap=%d (overlap must be >= 0 and < max_chars)",
			ErrInvalidChunkWindow, c.ChunkMaxChars, c.ChunkOverlap)
	}

	switch c.EmbedProvider {
	case ProviderLocal:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: embed_provider=openai requires GUIDANCE_OPENAI_API_KEY or OPENAI_API_KEY", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidEmbedProvider, c.EmbedProvider, ProviderLocal, ProviderOpenAI)
	}

	if c.EmbedDimension <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEmbedDimension, c.EmbedDimension)
	}

	if c.RerankWeightSim < 0 || c.RerankWeightBM25 < 0 || c.RerankWeightFuzz < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidRerankWeights)
	}
	if c.RerankWeightSim+c.RerankWeightBM25+c.RerankWeightFuzz == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidRerankWeights)
	}

	if c.RetrieveCandidates <= 0 || c.RerankTopK <= 0 || c.AnswerChunks <= 0 {
		return fmt.Errorf("%w: retrieve_candidates=%d rerank_top_k=%d answer_chunks=%d",
			ErrInvalidTopK, c.RetrieveCandidates, c.RerankTopK, c.AnswerChunks)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	return nil
}
