package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/embedding"
	"knowledge-rag/internal/mapping"
	"knowledge-rag/internal/textnorm"
	"knowledge-rag/internal/vectorstore/flat"
)

const (
	DefaultBatchSize = 32
	DefaultWorkers   = 4
)

// ErrNoChunks is returned when there is nothing to index.
var ErrNoChunks = errors.New("no chunks to index")

// Builder embeds chunks and assembles a Bundle.
type Builder struct {
	embedder  domain.Embedder
	batchSize int
	workers   int
	logger    *zap.Logger
}

// NewBuilder creates a builder that embeds batchSize chunks per request with
// at most workers requests in flight.
func NewBuilder(embedder domain.Embedder, batchSize, workers int, logger *zap.Logger) *Builder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{embedder: embedder, batchSize: batchSize, workers: workers, logger: logger}
}

// Build assigns positions in chunk order, embeds every chunk and returns the
// index and mapping as one bundle. chunks is updated with the assigned
// positions and with its text made valid UTF-8, so the mapping reads back
// exactly as built.
func (b *Builder) Build(ctx context.Context, chunks []domain.Chunk) (*Bundle, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	started := time.Now()
	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Text = textnorm.ValidUTF8(chunks[i].Text)
		texts[i] = chunks[i].Text
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	idx, err := flat.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	bundle := &Bundle{ID: uuid.New(), Index: idx, Mapping: mapping.FromChunks(chunks)}

	b.logger.Info("index built",
		zap.String("bundle", bundle.ID.String()),
		zap.Int("chunks", idx.Len()),
		zap.Int("dimension", idx.Dimension()),
		zap.String("embedder", b.embedder.Name()),
		zap.Duration("took", time.Since(started)),
	)
	return bundle, nil
}

// embedAll embeds texts in parallel batches; results keep input order.
func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	batches := embedding.Batches(texts, b.batchSize)
	results := make([][][]float32, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, batch := range batches {
		g.Go(func() error {
			vecs, err := b.embedder.Embed(gctx, batch)
			if err != nil {
				return fmt.Errorf("embed batch %d/%d: %w", i+1, len(batches), err)
			}
			if err := embedding.Check(len(batch), vecs); err != nil {
				return fmt.Errorf("embed batch %d/%d: %w", i+1, len(batches), err)
			}
			results[i] = vecs
			b.logger.Debug("embedded batch", zap.Int("batch", i+1), zap.Int("of", len(batches)), zap.Int("size", len(batch)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for _, r := range results {
		vectors = append(vectors, r...)
	}
	return vectors, nil
}
