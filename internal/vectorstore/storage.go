package vectorstore

import "knowledge-rag/internal/domain"

// Index answers nearest-neighbor queries over vectors addressed by their
// insertion position.
type Index interface {
	Len() int
	Dimension() int
	Search(query []float32, k int) ([]domain.Neighbor, error)
}
