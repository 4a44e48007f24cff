package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers dispatch on them with errors.Is to pick
// retry, fallback or abort.
var (
	// ErrInvalidConfig indicates a configuration value that cannot be executed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedDocument indicates a file type with no parser.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrUnreadableDocument indicates a corrupt or unreadable document.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrIndexNotBuilt indicates no persisted index/mapping pair exists yet.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrInconsistentIndex indicates the index and mapping are out of sync
	// and must be rebuilt together.
	ErrInconsistentIndex = errors.New("index and mapping are inconsistent")

	// ErrDimensionMismatch indicates a vector whose dimension differs from the index.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingService indicates the embedding capability failed or timed out.
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrRerankService indicates the reranking capability failed or timed out.
	ErrRerankService = errors.New("rerank service failed")

	// ErrAnswerService indicates the answer generation capability is unreachable or failed.
	ErrAnswerService = errors.New("answer service failed")
)

// IngestError records a per-document ingestion failure.
type IngestError struct {
	File string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
