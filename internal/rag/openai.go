package rag

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder is the external embedding provider strategy. Every call
// carries an explicit timeout so a hung provider degrades to the fallback
// instead of blocking the request.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	dim     int
	timeout time.Duration
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder.
// model defaults to text-embedding-3-small, timeout to 10s.
func NewOpenAIEmbedder(apiKey, model string, dim int, timeout time.Duration) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedder: API key is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &OpenAIEmbedder{
		client:  openai.NewClient(apiKey),
		model:   openai.EmbeddingModel(model),
		dim:     dim,
		timeout: timeout,
	}, nil
}

// Dimension returns the requested vector length.
func (e *OpenAIEmbedder) Dimension() int { return e.dim }

// Embed requests an embedding from the OpenAI API and L2-normalizes it.
// Callers wrap this in a FallbackEmbedder; errors returned here trigger the
// local strategy.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      e.model,
		Dimensions: e.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding call: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding call: empty response")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != e.dim {
		return nil, fmt.Errorf("openai embedding call: got dimension %d, want %d", len(vec), e.dim)
	}

	l2Normalize(vec)
	return vec, nil
}
