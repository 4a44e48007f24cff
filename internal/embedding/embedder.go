// Package embedding holds helpers shared by the embedding adapters.
package embedding

import (
	"fmt"

	"knowledge-rag/internal/domain"
)

// Batches splits texts into consecutive slices of at most size elements.
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}

// Check verifies that an adapter returned one non-empty vector per input,
// all of the same dimension.
func Check(inputs int, vectors [][]float32) error {
	if len(vectors) != inputs {
		return fmt.Errorf("%w: got %d vectors for %d inputs", domain.ErrEmbeddingService, len(vectors), inputs)
	}
	dim := -1
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at %d", domain.ErrEmbeddingService, i)
		}
		if dim == -1 {
			dim = len(v)
		} else if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}
