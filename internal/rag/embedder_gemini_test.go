package rag

import (
	"context"
	"os"
	"testing"
)

func TestGeminiEmbedderLive(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	e := &GeminiEmbedder{apiKey: apiKey, model: "text-embedding-004", dim: 768}
	vec, err := e.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("embedding error: %v", err)
	}
	if len(vec) != 768 {
		t.Fatalf("expected 768 dimensions, got %d", len(vec))
	}
}
