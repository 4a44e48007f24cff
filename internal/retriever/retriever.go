package retriever

import (
	"context"
	"fmt"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/rerank"
)

// Searcher is a nearest-neighbor search over indexed chunks.
type Searcher interface {
	Len() int
	Search(query []float32, k int) ([]domain.Candidate, error)
}

// Retriever runs the two retrieval stages: a k-nearest-neighbor search over
// the index followed by a rerank of those k candidates.
type Retriever struct {
	embedder domain.Embedder
	reranker *rerank.Reranker
	index    Searcher
}

// New creates a retriever.
func New(embedder domain.Embedder, reranker *rerank.Reranker, index Searcher) *Retriever {
	return &Retriever{embedder: embedder, reranker: reranker, index: index}
}

// Retrieve returns at most min(rerankTop, k) candidates for query, highest
// rerank score first. rerankTop larger than k is clamped to k.
func (r *Retriever) Retrieve(ctx context.Context, query string, k, rerankTop int) ([]domain.Candidate, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfig, k)
	}
	if rerankTop <= 0 {
		return nil, fmt.Errorf("%w: rerank_top must be positive, got %d", domain.ErrInvalidConfig, rerankTop)
	}
	if rerankTop > k {
		rerankTop = k
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", domain.ErrEmbeddingService, len(vecs))
	}

	candidates, err := r.index.Search(vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	ranked, err := r.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, err
	}
	if len(ranked) > rerankTop {
		ranked = ranked[:rerankTop]
	}
	return ranked, nil
}
