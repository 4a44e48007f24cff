// Package rerank reorders retrieval candidates with a pairwise relevance model.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"knowledge-rag/internal/domain"
)

// Reranker scores every candidate against the query and sorts by score.
type Reranker struct {
	scorer domain.Scorer
}

// New creates a reranker backed by scorer.
func New(scorer domain.Scorer) *Reranker {
	return &Reranker{scorer: scorer}
}

// Name returns the underlying scorer name.
func (r *Reranker) Name() string { return r.scorer.Name() }

// Rerank returns the candidates with Score set, ordered by descending score.
// Equal scores keep their input (nearest-neighbor) order.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.Candidate) ([]domain.Candidate, error) {
	if len(candidates) == 0 {
		return []domain.Candidate{}, nil
	}
	pairs := make([]domain.Pair, len(candidates))
	for i, c := range candidates {
		pairs[i] = domain.Pair{Query: query, Text: c.Text}
	}
	scores, err := r.scorer.Score(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRerankService, r.scorer.Name(), err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("%w: %s returned %d scores for %d candidates", domain.ErrRerankService, r.scorer.Name(), len(scores), len(candidates))
	}

	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Score = scores[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
