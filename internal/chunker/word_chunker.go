package chunker

import (
	"fmt"
	"strings"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/textnorm"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// WordChunker splits normalized text into fixed-size word windows with overlap.
type WordChunker struct {
	chunkSize int
	overlap   int
}

// NewWordChunker validates chunkSize > overlap >= 0 before any text is split,
// since a non-positive stride would never terminate.
func NewWordChunker(chunkSize, overlap int) (*WordChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap (%d) must be smaller than chunk_size (%d)", domain.ErrInvalidConfig, overlap, chunkSize)
	}
	return &WordChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

func (c *WordChunker) ChunkSize() int { return c.chunkSize }
func (c *WordChunker) Overlap() int   { return c.overlap }

// Split returns the chunk texts of text in order. Each window starts
// chunkSize-overlap words after the previous one; the last may be shorter.
func (c *WordChunker) Split(text string) []string {
	words := textnorm.Words(text)
	if len(words) == 0 {
		return nil
	}
	stride := c.chunkSize - c.overlap
	chunks := make([]string, 0, len(words)/stride+1)
	for start := 0; start < len(words); start += stride {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// Chunk splits one book's text and attributes every chunk to it.
// Positions are assigned later, when the chunks are indexed.
func (c *WordChunker) Chunk(book, text string) []domain.Chunk {
	parts := c.Split(text)
	if len(parts) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = domain.Chunk{Book: book, Text: p, Index: -1}
	}
	return chunks
}
