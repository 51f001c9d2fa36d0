package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Chunk is a bounded-length contiguous text segment of an ingested document,
// stored in the index alongside its embedding vector.
type Chunk struct {
	ID     string `json:"chunk_id"`
	Source string `json:"source"`
	Order  int    `json:"order"`
	Text   string `json:"text"`
}

// Match is a chunk returned from a similarity query together with its
// distance from the query vector (smaller is closer).
type Match struct {
	Chunk    Chunk
	Distance float64
}

type indexEntry struct {
	chunk  Chunk
	vector []float32
	seq    int // insertion order, used to break distance ties
}

// VectorIndex is an in-memory nearest-neighbor index over chunk embeddings.
// Distance is cosine distance (1 - cosine similarity), applied consistently
// at insert and query time. Dimension is fixed at construction.
//
// State lives only in process memory: there is no persistence and no
// multi-instance coordination, so restarts lose the index and horizontal
// scaling would need an external store.
type VectorIndex struct {
	mu      sync.RWMutex
	dim     int
	entries []indexEntry
	byID    map[string]int // chunk ID -> position in entries
	seq     int
}

// NewVectorIndex creates an empty index for embeddings of the given dimension.
func NewVectorIndex(dim int) *VectorIndex {
	return &VectorIndex{
		dim:  dim,
		byID: make(map[string]int),
	}
}

// Dimension returns the embedding dimension the index was built for.
func (ix *VectorIndex) Dimension() int {
	return ix.dim
}

// Len returns the number of chunks currently stored.
func (ix *VectorIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Insert appends a chunk with its embedding, replacing any existing chunk
// with the same ID. The only failure mode is a dimension mismatch.
func (ix *VectorIndex) Insert(chunk Chunk, embedding []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.insertLocked(chunk, embedding)
}

// InsertBatch inserts all chunks of one document atomically: queries observe
// either none or all of them. Nothing is inserted if any vector has the
// wrong dimension.
func (ix *VectorIndex) InsertBatch(chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, emb := range embeddings {
		if len(emb) != ix.dim {
			return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(emb), ix.dim)
		}
	}
	for i, chunk := range chunks {
		if err := ix.insertLocked(chunk, embeddings[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceSource atomically swaps a source's chunks for a new set: every chunk
// previously stored for the source is removed before the new batch is
// inserted, so stale and fresh content for one document never coexist. A
// dimension mismatch in the new batch leaves the index untouched.
func (ix *VectorIndex) ReplaceSource(source string, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, emb := range embeddings {
		if len(emb) != ix.dim {
			return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(emb), ix.dim)
		}
	}
	ix.removeSourceLocked(source)
	for i, chunk := range chunks {
		if err := ix.insertLocked(chunk, embeddings[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ix *VectorIndex) removeSourceLocked(source string) {
	kept := ix.entries[:0]
	for _, e := range ix.entries {
		if e.chunk.Source != source {
			kept = append(kept, e)
		}
	}
	ix.entries = kept
	ix.byID = make(map[string]int, len(kept))
	for i, e := range kept {
		ix.byID[e.chunk.ID] = i
	}
}

func (ix *VectorIndex) insertLocked(chunk Chunk, embedding []float32) error {
	if len(embedding) != ix.dim {
		return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(embedding), ix.dim)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	if pos, ok := ix.byID[chunk.ID]; ok {
		seq := ix.entries[pos].seq
		ix.entries[pos] = indexEntry{chunk: chunk, vector: vec, seq: seq}
		return nil
	}

	ix.entries = append(ix.entries, indexEntry{chunk: chunk, vector: vec, seq: ix.seq})
	ix.byID[chunk.ID] = len(ix.entries) - 1
	ix.seq++
	return nil
}

// Query returns the k stored chunks closest to the query embedding, sorted
// ascending by distance with ties broken by insertion order. Fewer than k
// results are returned when the index holds fewer chunks; an empty index
// yields an empty slice, not an error.
func (ix *VectorIndex) Query(embedding []float32, k int) ([]Match, error) {
	if len(embedding) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(embedding), ix.dim)
	}
	if k <= 0 {
		return []Match{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		entry    indexEntry
		distance float64
	}
	results := make([]scored, 0, len(ix.entries))
	for _, entry := range ix.entries {
		results = append(results, scored{entry: entry, distance: cosineDistance(embedding, entry.vector)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].distance != results[j].distance {
			return results[i].distance < results[j].distance
		}
		return results[i].entry.seq < results[j].entry.seq
	})

	if k > len(results) {
		k = len(results)
	}
	matches := make([]Match, 0, k)
	for _, r := range results[:k] {
		matches = append(matches, Match{Chunk: r.entry.chunk, Distance: r.distance})
	}
	return matches, nil
}

// cosineDistance returns 1 - cosine similarity. Zero vectors are treated as
// maximally distant rather than producing NaN.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
