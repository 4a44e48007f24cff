// Package ollama generates answers with a local LLM served by Ollama.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"knowledge-rag/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "mistral"
)

// Config holds configuration for the Ollama generator.
type Config struct {
	BaseURL     string
	Model       string
	Temperature *float64
	Timeout     time.Duration // 0 leaves the deadline to the caller's context
}

// Generator streams completions from Ollama's /api/generate endpoint.
type Generator struct {
	client  *api.Client
	model   string
	options map[string]any
}

// NewGenerator creates a generator talking to the Ollama server at cfg.BaseURL.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama base url: %v", domain.ErrInvalidConfig, err)
	}
	g := &Generator{
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:  cfg.Model,
	}
	if cfg.Temperature != nil {
		g.options = map[string]any{"temperature": *cfg.Temperature}
	}
	return g, nil
}

// Name returns the identifier of this generator.
func (g *Generator) Name() string { return "ollama:" + g.model }

// Generate concatenates the streamed response fragments in arrival order and
// trims the result.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	stream := true
	var sb strings.Builder
	err := g.client.Generate(ctx, &api.GenerateRequest{
		Model:   g.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: g.options,
	}, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama generate: %v", domain.ErrAnswerService, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
