package tei

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
)

// fakeServer scores a text by its length and answers in descending-score
// order, the way the real endpoint sorts its output.
func fakeServer(t *testing.T, requests *[]rerankRequest) *httptest.Server {
	var mu sync.Mutex
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		var req rerankRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		*requests = append(*requests, req)
		mu.Unlock()

		results := make([]rerankResult, len(req.Texts))
		for i, text := range req.Texts {
			results[len(req.Texts)-1-i] = rerankResult{Index: i, Score: float64(len(text))}
		}
		_ = json.NewEncoder(w).Encode(results)
	}))
}

func TestScore_MapsResultsByIndex(t *testing.T) {
	var reqs []rerankRequest
	srv := fakeServer(t, &reqs)
	defer srv.Close()

	s := NewScorer(Config{BaseURL: srv.URL + "/", Model: "bge-reranker-base"})
	assert.Equal(t, "tei:bge-reranker-base", s.Name())

	scores, err := s.Score(context.Background(), []domain.Pair{
		{Query: "q", Text: "a"},
		{Query: "q", Text: "abc"},
		{Query: "q", Text: "ab"},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2}, scores)

	require.Len(t, reqs, 1)
	assert.Equal(t, "q", reqs[0].Query)
	assert.True(t, reqs[0].RawScores)
	assert.Equal(t, []string{"a", "abc", "ab"}, reqs[0].Texts)
}

func TestScore_GroupsConsecutiveQueries(t *testing.T) {
	var reqs []rerankRequest
	srv := fakeServer(t, &reqs)
	defer srv.Close()

	scores, err := NewScorer(Config{BaseURL: srv.URL}).Score(context.Background(), []domain.Pair{
		{Query: "x", Text: "1"},
		{Query: "x", Text: "22"},
		{Query: "y", Text: "333"},
		{Query: "x", Text: "4444"},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, scores)

	require.Len(t, reqs, 3)
	assert.Equal(t, []string{"x", "y", "x"}, []string{reqs[0].Query, reqs[1].Query, reqs[2].Query})
}

func TestScore_Empty(t *testing.T) {
	scores, err := NewScorer(Config{BaseURL: "http://127.0.0.1:1"}).Score(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestScore_ServerErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}},
		{"short", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"index":0,"score":1}]`))
		}},
		{"duplicate index", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"index":0,"score":1},{"index":0,"score":2}]`))
		}},
		{"garbage", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			_, err := NewScorer(Config{BaseURL: srv.URL}).Score(context.Background(), []domain.Pair{
				{Query: "q", Text: "a"}, {Query: "q", Text: "b"},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrRerankService)
		})
	}
}

func TestScore_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewScorer(Config{BaseURL: url}).Score(context.Background(), []domain.Pair{{Query: "q", Text: "t"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRerankService)
}
