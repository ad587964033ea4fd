package memory

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder converts text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// OpenAIEmbedder implements Embedder using OpenAI's embeddings API.
//
// The text-embedding-3-small model produces 1536-dimension vectors,
// matching the pgvector schema.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an OpenAI embedder.
func NewOpenAIEmbedder(apiKey string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIEmbedder{
		client: &client,
		model:  openai.EmbeddingModelTextEmbedding3Small,
	}, nil
}

// Embed returns the embedding vector for the text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding in response")
	}

	return resp.Data[0].Embedding, nil
}

// MockEmbedder is a deterministic embedder for tests and offline
// development. Identical texts embed identically; different texts
// almost always differ.
type MockEmbedder struct {
	// Dim is the vector dimension (0 selects 8).
	Dim int
}

// Embed returns a deterministic unit vector derived from the text.
func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	dim := e.Dim
	if dim == 0 {
		dim = 8
	}

	vec := make([]float64, dim)
	h := fnv.New64a()
	for i := 0; i < dim; i++ {
		h.Reset()
		_, _ = h.Write([]byte(text))
		_, _ = h.Write([]byte{byte(i)})
		vec[i] = float64(h.Sum64()%1000)/500.0 - 1.0
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
