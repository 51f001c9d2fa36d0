package rag

import (
	"context"
	"fmt"
	"strings"

	"noddy-ai-backend/internal/logger"
)

// Ingestor is the ingestion boundary: it accepts a named document's extracted
// plain text, chunks it, embeds every chunk and batch-inserts the result.
// Extracting text from binary formats (PDF etc.) is a collaborator's job.
type Ingestor struct {
	chunker  *Chunker
	embedder Embedder
	index    *VectorIndex
}

func NewIngestor(chunker *Chunker, embedder Embedder, index *VectorIndex) *Ingestor {
	return &Ingestor{chunker: chunker, embedder: embedder, index: index}
}

// Ingest indexes one document and returns the number of chunks created.
// Chunks of a document are inserted as one atomic batch; re-ingesting a
// source name replaces its previous content entirely, including any surplus
// chunks when the new text is shorter. Empty text clears the source.
func (ing *Ingestor) Ingest(ctx context.Context, source, text string) (int, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return 0, fmt.Errorf("document source name is required")
	}

	chunks := ing.chunker.ChunkDocument(source, text)
	embeddings := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		emb, err := ing.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
		}
		embeddings[i] = emb
	}

	if err := ing.index.ReplaceSource(source, chunks, embeddings); err != nil {
		return 0, fmt.Errorf("index document %s: %w", source, err)
	}

	logger.Info("document ingested", "source", source, "chunks", len(chunks))
	return len(chunks), nil
}
