package rag

import (
	"fmt"
	"iter"
	"unicode/utf8"
)

// Chunker splits document text into bounded-size segments for indexing.
// Splitting is purely positional: chunks are contiguous, non-overlapping and
// may cut mid-word. Concatenating the chunks in order reproduces the input
// exactly.
type Chunker struct {
	maxChunkSize int
}

// NewChunker creates a chunker with the given maximum chunk length in bytes.
func NewChunker(maxChunkSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	return &Chunker{maxChunkSize: maxChunkSize}
}

// Chunks returns a lazy, restartable sequence over the chunks of text.
// Boundaries back off to the nearest rune start so a multi-byte character is
// never split across chunks; the final chunk may be shorter than the maximum.
func (c *Chunker) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for start := 0; start < len(text); {
			end := start + c.maxChunkSize
			if end >= len(text) {
				end = len(text)
			} else {
				for end > start && !utf8.RuneStart(text[end]) {
					end--
				}
				// A single rune wider than the maximum is emitted as raw
				// bytes rather than looping.
				if end == start {
					end = start + c.maxChunkSize
				}
			}
			if !yield(text[start:end]) {
				return
			}
			start = end
		}
	}
}

// ChunkDocument materializes the chunks of a named document. Chunk IDs are
// derived from the source name and sequence index, so re-ingesting the same
// source yields the same identities.
func (c *Chunker) ChunkDocument(source, text string) []Chunk {
	var chunks []Chunk
	order := 0
	for span := range c.Chunks(text) {
		chunks = append(chunks, Chunk{
			ID:     fmt.Sprintf("%s#%d", source, order),
			Source: source,
			Order:  order,
			Text:   span,
		})
		order++
	}
	return chunks
}
