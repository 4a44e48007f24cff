// Package tei scores (query, text) pairs with a cross-encoder served behind a
// Text Embeddings Inference style /rerank endpoint.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"knowledge-rag/internal/domain"
)

const DefaultBaseURL = "http://localhost:8080"

// Config configures the cross-encoder client.
type Config struct {
	BaseURL string
	Model   string // informational; the server decides which model it serves
	Timeout time.Duration
}

// Scorer calls the remote cross-encoder.
type Scorer struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewScorer creates a cross-encoder scorer.
func NewScorer(cfg Config) *Scorer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Scorer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the identifier of this scorer.
func (s *Scorer) Name() string {
	if s.model == "" {
		return "tei"
	}
	return "tei:" + s.model
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score returns one score per pair, in input order. Consecutive pairs that
// share a query go out as a single request.
func (s *Scorer) Score(ctx context.Context, pairs []domain.Pair) ([]float64, error) {
	out := make([]float64, len(pairs))
	for start := 0; start < len(pairs); {
		end := start + 1
		for end < len(pairs) && pairs[end].Query == pairs[start].Query {
			end++
		}
		texts := make([]string, 0, end-start)
		for _, p := range pairs[start:end] {
			texts = append(texts, p.Text)
		}
		scores, err := s.rerank(ctx, pairs[start].Query, texts)
		if err != nil {
			return nil, err
		}
		copy(out[start:end], scores)
		start = end
	}
	return out, nil
}

func (s *Scorer) rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	data, err := json.Marshal(rerankRequest{Query: query, Texts: texts, RawScores: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rerank", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRerankService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: rerank failed: %s: %s", domain.ErrRerankService, resp.Status, bytes.TrimSpace(body))
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrRerankService, err)
	}
	if len(results) != len(texts) {
		return nil, fmt.Errorf("%w: got %d scores for %d texts", domain.ErrRerankService, len(results), len(texts))
	}
	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(texts) || seen[r.Index] {
			return nil, fmt.Errorf("%w: bad result index %d", domain.ErrRerankService, r.Index)
		}
		seen[r.Index] = true
		scores[r.Index] = r.Score
	}
	return scores, nil
}
