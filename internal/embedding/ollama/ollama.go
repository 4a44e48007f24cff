// Package ollama embeds text with a sentence-embedding model served by Ollama.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/embedding"
)

// Default configuration values.
const (
	DefaultBaseURL   = "http://localhost:11434"
	DefaultModel     = "all-minilm"
	DefaultTimeout   = 60 * time.Second
	DefaultKeepAlive = 60 * time.Minute
)

// Config holds configuration for the Ollama embedder.
type Config struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	KeepAlive time.Duration
}

// Embedder calls Ollama's /api/embed endpoint.
type Embedder struct {
	client    *api.Client
	model     string
	keepAlive time.Duration
}

// NewEmbedder creates an embedder talking to the Ollama server at cfg.BaseURL.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama base url: %v", domain.ErrInvalidConfig, err)
	}
	return &Embedder{
		client:    api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "ollama:" + e.model }

// Embed sends all texts in one request and returns their vectors in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model:     e.model,
		Input:     texts,
		KeepAlive: &api.Duration{Duration: e.keepAlive},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", domain.ErrEmbeddingService, err)
	}
	if err := embedding.Check(len(texts), resp.Embeddings); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}
