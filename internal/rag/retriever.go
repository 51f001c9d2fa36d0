package rag

import (
	"context"
	"strings"

	"noddy-ai-backend/internal/logger"
)

// RetrievedContext is the outcome of a similarity lookup for one user query.
// Degraded retrieval (empty index, embedding failure) still produces a usable
// value: empty context plus a diagnostic note, never a hard error.
type RetrievedContext struct {
	Text    string   // matched chunk texts joined in ranked order
	Sources []string // distinct source names, first-hit order
	Count   int      // number of matched chunks
	Note    string   // diagnostic note when retrieval was degraded or empty
}

// Empty reports whether no context was retrieved.
func (rc RetrievedContext) Empty() bool {
	return rc.Count == 0
}

// Retriever embeds a query and reads the vector index. It shares the
// ingestion embedder so query and chunk vectors live in the same space.
type Retriever struct {
	index    *VectorIndex
	embedder Embedder
	topK     int
}

func NewRetriever(index *VectorIndex, embedder Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{index: index, embedder: embedder, topK: topK}
}

// Retrieve returns ranked context for the query. The conversation must be
// able to proceed without context, so failures degrade instead of propagating.
func (r *Retriever) Retrieve(ctx context.Context, query string) RetrievedContext {
	if r.index.Len() == 0 {
		return RetrievedContext{Note: "no documents ingested"}
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed, proceeding without context", "error", err)
		return RetrievedContext{Note: "embedding unavailable: " + err.Error()}
	}

	matches, err := r.index.Query(embedding, r.topK)
	if err != nil {
		logger.Warn("vector query failed, proceeding without context", "error", err)
		return RetrievedContext{Note: "index query failed: " + err.Error()}
	}
	if len(matches) == 0 {
		return RetrievedContext{Note: "no matching fragments"}
	}

	texts := make([]string, 0, len(matches))
	sources := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Chunk.Text)
		if !seen[m.Chunk.Source] {
			seen[m.Chunk.Source] = true
			sources = append(sources, m.Chunk.Source)
		}
	}

	return RetrievedContext{
		Text:    strings.Join(texts, "\n\n"),
		Sources: sources,
		Count:   len(matches),
	}
}
