// Package service wires ingestion, indexing, retrieval and answering into
// the operations exposed by the CLI and TUI.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"knowledge-rag/internal/answer"
	"knowledge-rag/internal/catalog"
	"knowledge-rag/internal/chunker"
	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/index"
	"knowledge-rag/internal/ingest"
	"knowledge-rag/internal/rerank"
	"knowledge-rag/internal/retriever"
	"knowledge-rag/internal/summarizer"
	"knowledge-rag/internal/textnorm"
)

// Deps are the components a service is assembled from. Generator and
// Catalog may be nil; a nil Parsers uses the built-in PDF and EPUB parsers.
type Deps struct {
	Parsers    ingest.Registry
	Chunker    *chunker.WordChunker
	Embedder   domain.Embedder
	Scorer     domain.Scorer
	Generator  domain.Generator
	Summarizer *summarizer.Frequency
	Catalog    *catalog.Catalog
	Logger     *zap.Logger
}

// Settings are the locations and default knobs of a service.
type Settings struct {
	DataDir       string
	CacheDir      string
	Paths         index.Paths
	BatchSize     int
	Workers       int
	K             int
	RerankTop     int
	AnswerTimeout time.Duration
}

// Response is the outcome of one query. When Fallback is set the answer
// could not be generated: Answer is empty and Notice says so, but
// Candidates are still populated.
type Response struct {
	Query      string
	Candidates []domain.Candidate
	Answer     string
	Fallback   bool
	Notice     string
	AnswerErr  error
}

// BuildResult summarizes an index build.
type BuildResult struct {
	BundleID  string
	Documents int
	Chunks    int
	Dimension int
	Ingest    *ingest.Report
}

// Status describes the persisted state.
type Status struct {
	IndexBuilt  bool
	IndexErr    error
	Chunks      int
	Dimension   int
	BundleID    string
	Documents   []catalog.Document
	LatestBuild *catalog.Build
}

// RAGService runs the retrieval-augmented answering pipeline.
type RAGService struct {
	deps     Deps
	settings Settings
	ingester *ingest.Ingester
	builder  *index.Builder
	reranker *rerank.Reranker
	answerer *answer.Answerer
	logger   *zap.Logger

	mu     sync.RWMutex
	bundle *index.Bundle
}

// New creates a service from its components.
func New(deps Deps, settings Settings) *RAGService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Summarizer == nil {
		deps.Summarizer = summarizer.NewFrequency(0)
	}
	if deps.Parsers == nil {
		deps.Parsers = ingest.DefaultRegistry()
	}
	if settings.K <= 0 {
		settings.K = 10
	}
	if settings.RerankTop <= 0 {
		settings.RerankTop = 3
	}
	return &RAGService{
		deps:     deps,
		settings: settings,
		ingester: ingest.NewIngester(settings.DataDir, settings.CacheDir, deps.Parsers, logger.Named("ingest")),
		builder:  index.NewBuilder(deps.Embedder, settings.BatchSize, settings.Workers, logger.Named("index")),
		reranker: rerank.New(deps.Scorer),
		answerer: answer.NewAnswerer(deps.Generator, settings.AnswerTimeout, logger.Named("answer")),
		logger:   logger,
	}
}

// Close releases the catalog.
func (s *RAGService) Close() error {
	if s.deps.Catalog != nil {
		return s.deps.Catalog.Close()
	}
	return nil
}

// Ingest refreshes the text cache from the data directory.
func (s *RAGService) Ingest(ctx context.Context, force bool) (*ingest.Report, error) {
	report, err := s.ingester.Run(ctx, force)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ingestion finished",
		zap.Int("documents", len(report.Texts)),
		zap.Int("parsed", report.Parsed()),
		zap.Int("skipped", len(report.Skipped)))

	if s.deps.Catalog != nil {
		now := time.Now()
		for _, t := range report.Texts {
			sum := sha256.Sum256([]byte(t.Text))
			err := s.deps.Catalog.RecordDocument(ctx, catalog.Document{
				Name:       t.Book,
				CachePath:  t.Cache,
				SHA256:     hex.EncodeToString(sum[:]),
				Words:      len(textnorm.Words(t.Text)),
				IngestedAt: now,
			})
			if err != nil {
				s.logger.Warn("catalog update failed", zap.String("book", t.Book), zap.Error(err))
			}
		}
	}
	return report, nil
}

// Summarize returns a short extractive synopsis of text.
func (s *RAGService) Summarize(text string) string {
	return s.deps.Summarizer.Summarize(text)
}

// BuildIndex ingests the data directory, chunks every text in book order,
// embeds the chunks and persists index and mapping together. The new bundle
// also becomes the one this service queries.
func (s *RAGService) BuildIndex(ctx context.Context, force bool) (*BuildResult, error) {
	report, err := s.Ingest(ctx, force)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, t := range report.Texts {
		chunks = append(chunks, s.deps.Chunker.Chunk(t.Book, t.Text)...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w in %s", index.ErrNoChunks, s.settings.DataDir)
	}

	bundle, err := s.builder.Build(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if err := index.Save(bundle, s.settings.Paths); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}
	s.setBundle(bundle)

	res := &BuildResult{
		BundleID:  bundle.ID.String(),
		Documents: len(report.Texts),
		Chunks:    bundle.Len(),
		Dimension: bundle.Index.Dimension(),
		Ingest:    report,
	}
	if s.deps.Catalog != nil {
		err := s.deps.Catalog.RecordBuild(ctx, catalog.Build{
			ID:        res.BundleID,
			BuiltAt:   time.Now(),
			Documents: res.Documents,
			Chunks:    res.Chunks,
			Dimension: res.Dimension,
			Embedder:  s.deps.Embedder.Name(),
		})
		if err != nil {
			s.logger.Warn("catalog update failed", zap.Error(err))
		}
	}
	return res, nil
}

// Open loads the persisted bundle. It fails with domain.ErrIndexNotBuilt
// before the first build.
func (s *RAGService) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bundle, err := index.Load(s.settings.Paths)
	if err != nil {
		return err
	}
	s.setBundle(bundle)
	s.logger.Debug("index loaded", zap.String("bundle", bundle.ID.String()), zap.Int("chunks", bundle.Len()))
	return nil
}

func (s *RAGService) setBundle(b *index.Bundle) {
	s.mu.Lock()
	s.bundle = b
	s.mu.Unlock()
}

func (s *RAGService) loaded(ctx context.Context) (*index.Bundle, error) {
	s.mu.RLock()
	b := s.bundle
	s.mu.RUnlock()
	if b != nil {
		return b, nil
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle, nil
}

// Query answers q against the persisted index. Non-positive k or rerankTop
// fall back to the configured defaults.
func (s *RAGService) Query(ctx context.Context, q string, k, rerankTop int) (*Response, error) {
	bundle, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	return s.answer(ctx, bundle, q, k, rerankTop)
}

// AskDocument answers q against a single document indexed in memory only.
// Neither the cache nor the persisted index is touched.
func (s *RAGService) AskDocument(ctx context.Context, path, q string, k, rerankTop int) (*Response, error) {
	text, err := s.deps.Parsers.Parse(path)
	if err != nil {
		return nil, err
	}
	book := filepath.Base(path)
	chunks := s.deps.Chunker.Chunk(book, text)
	if len(chunks) == 0 {
		return nil, &domain.IngestError{File: book, Err: fmt.Errorf("%w: no text extracted", domain.ErrUnreadableDocument)}
	}
	bundle, err := s.builder.Build(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return s.answer(ctx, bundle, q, k, rerankTop)
}

func (s *RAGService) answer(ctx context.Context, bundle *index.Bundle, q string, k, rerankTop int) (*Response, error) {
	if k <= 0 {
		k = s.settings.K
	}
	if rerankTop <= 0 {
		rerankTop = s.settings.RerankTop
	}
	candidates, err := retriever.New(s.deps.Embedder, s.reranker, bundle).Retrieve(ctx, q, k, rerankTop)
	if err != nil {
		return nil, err
	}
	res := s.answerer.Answer(ctx, q, candidates)
	return &Response{
		Query:      q,
		Candidates: candidates,
		Answer:     res.Text,
		Fallback:   res.Fallback,
		Notice:     res.Notice,
		AnswerErr:  res.Err,
	}, nil
}

// Status reports the persisted index and, when a catalog is configured,
// the ingestion and build history.
func (s *RAGService) Status(ctx context.Context) (*Status, error) {
	st := &Status{}
	bundle, err := index.Load(s.settings.Paths)
	if err != nil {
		st.IndexErr = err
	} else {
		st.IndexBuilt = true
		st.Chunks = bundle.Len()
		st.Dimension = bundle.Index.Dimension()
		st.BundleID = bundle.ID.String()
	}
	if s.deps.Catalog == nil {
		return st, nil
	}
	if st.Documents, err = s.deps.Catalog.Documents(ctx); err != nil {
		return nil, err
	}
	build, err := s.deps.Catalog.LatestBuild(ctx)
	switch {
	case err == nil:
		st.LatestBuild = build
	case !errors.Is(err, catalog.ErrNoBuild):
		return nil, err
	}
	return st, nil
}
