package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"knowledge-rag/internal/answer/ollama"
	"knowledge-rag/internal/catalog"
	"knowledge-rag/internal/chunker"
	"knowledge-rag/internal/config"
	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/embedding/hashing"
	ollamaemb "knowledge-rag/internal/embedding/ollama"
	"knowledge-rag/internal/embedding/openai"
	"knowledge-rag/internal/index"
	"knowledge-rag/internal/rerank/lexical"
	"knowledge-rag/internal/rerank/tei"
	"knowledge-rag/internal/summarizer"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// NewEmbedder assembles the embedder selected by cfg.Type.
func NewEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "ollama":
		if cfg.Ollama == nil {
			return nil, fmt.Errorf("%w: ollama embedder config missing", domain.ErrInvalidConfig)
		}
		e, err := ollamaemb.NewEmbedder(ollamaemb.Config{
			BaseURL:   cfg.Ollama.BaseURL,
			Model:     cfg.Ollama.Model,
			Timeout:   secs(cfg.Ollama.TimeoutSecs),
			KeepAlive: time.Duration(cfg.Ollama.KeepAliveMins) * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrInvalidConfig)
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   secs(cfg.OpenAI.TimeoutSecs),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "hashing":
		dim := hashing.DefaultDimension
		if cfg.Hashing != nil && cfg.Hashing.Dimension > 0 {
			dim = cfg.Hashing.Dimension
		}
		return hashing.NewEmbedder(dim), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrInvalidConfig, cfg.Type)
	}
}

// NewScorer assembles the rerank scorer selected by cfg.Type.
func NewScorer(cfg config.RerankerConfig) (domain.Scorer, error) {
	switch cfg.Type {
	case "lexical":
		return lexical.NewScorer(), nil
	case "tei":
		if cfg.TEI == nil {
			return nil, fmt.Errorf("%w: tei reranker config missing", domain.ErrInvalidConfig)
		}
		return tei.NewScorer(tei.Config{
			BaseURL: cfg.TEI.BaseURL,
			Model:   cfg.TEI.Model,
			Timeout: secs(cfg.TEI.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown reranker: %s", domain.ErrInvalidConfig, cfg.Type)
	}
}

// NewGenerator assembles the answer generator selected by cfg.Type.
// Type "none" yields a nil generator.
func NewGenerator(cfg config.GeneratorConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "ollama":
		if cfg.Ollama == nil {
			return nil, fmt.Errorf("%w: ollama generator config missing", domain.ErrInvalidConfig)
		}
		g, err := ollama.NewGenerator(ollama.Config{
			BaseURL:     cfg.Ollama.BaseURL,
			Model:       cfg.Ollama.Model,
			Temperature: cfg.Ollama.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: unknown generator: %s", domain.ErrInvalidConfig, cfg.Type)
	}
}

// FromConfig validates cfg and assembles a service with every component it
// selects. The caller owns the returned service and must Close it.
func FromConfig(cfg *config.AppConfig, logger *zap.Logger) (*RAGService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ch, err := chunker.NewWordChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}
	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}
	scorer, err := NewScorer(cfg.Reranker)
	if err != nil {
		return nil, fmt.Errorf("reranker init failed: %w", err)
	}
	gen, err := NewGenerator(cfg.Generator)
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}
	var answerTimeout time.Duration
	if cfg.Generator.Ollama != nil {
		answerTimeout = secs(cfg.Generator.Ollama.TimeoutSecs)
	}

	var cat *catalog.Catalog
	if cfg.Paths.Catalog != "" {
		if cat, err = catalog.Open(cfg.Paths.Catalog); err != nil {
			return nil, err
		}
	}

	return New(Deps{
		Chunker:    ch,
		Embedder:   emb,
		Scorer:     scorer,
		Generator:  gen,
		Summarizer: summarizer.NewFrequency(cfg.Summarizer.MaxSentences),
		Catalog:    cat,
		Logger:     logger,
	}, Settings{
		DataDir:       cfg.Paths.DataDir,
		CacheDir:      cfg.Paths.CacheDir,
		Paths:         index.Paths{Index: cfg.Paths.Index, Mapping: cfg.Paths.Mapping},
		BatchSize:     cfg.Embedder.BatchSize,
		Workers:       cfg.Embedder.Workers,
		K:             cfg.Retrieval.K,
		RerankTop:     cfg.Retrieval.RerankTop,
		AnswerTimeout: answerTimeout,
	}), nil
}
