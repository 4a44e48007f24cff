package lexical

import (
	"context"
	"math"
	"regexp"
	"strings"

	"knowledge-rag/internal/domain"
)

var unicodeWordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Scorer rates each (query, text) pair by the Ochiai coefficient of their
// distinct lowercase tokens: |Q∩T| / sqrt(|Q|·|T|). It needs no model server.
type Scorer struct{}

// NewScorer creates a lexical overlap scorer.
func NewScorer() *Scorer { return &Scorer{} }

// Name returns the identifier of this scorer.
func (s *Scorer) Name() string { return "lexical" }

// Score scores every pair independently.
func (s *Scorer) Score(ctx context.Context, pairs []domain.Pair) ([]float64, error) {
	out := make([]float64, len(pairs))
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = overlapOchiai(toTokenSet(p.Query), p.Text)
	}
	return out, nil
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
