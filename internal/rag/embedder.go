package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"noddy-ai-backend/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder turns text into a fixed-dimension vector. The same embedder must
// be used at ingestion and query time for distances to be meaningful.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// NewEmbedder selects an embedder from configuration.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "hash", "":
		return NewHashingEmbedder(cfg.VectorDimensions), nil
	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
		}
		return &GeminiEmbedder{
			apiKey: cfg.GeminiAPIKey,
			model:  cfg.GoogleEmbeddingsModel,
			dim:    cfg.VectorDimensions,
		}, nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}

// GeminiEmbedder computes embeddings with Google Generative AI
// (text-embedding-004 by default).
type GeminiEmbedder struct {
	apiKey string
	model  string
	dim    int
}

func (g *GeminiEmbedder) Dimension() int { return g.dim }

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.EmbeddingModel(g.model)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	if len(resp.Embedding.Values) != g.dim {
		return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(resp.Embedding.Values), g.dim)
	}

	return resp.Embedding.Values, nil
}

// HashingEmbedder is a deterministic local embedder: each token is hashed
// into one of dim buckets and the bucket counts are L2-normalized. It needs
// no network or credentials, which makes it the offline default and the test
// embedder. Similarity is bag-of-words overlap, not semantic.
type HashingEmbedder struct {
	dim int
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Dimension() int { return h.dim }

func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	for _, token := range tokenize(text) {
		hasher := fnv.New32a()
		hasher.Write([]byte(token))
		vec[int(hasher.Sum32())%h.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
