package domain

import "context"

// Document is a source file picked up from the data directory.
type Document struct {
	Name string // file name, used as the book label
	Path string
}

// Chunk is a bounded word window taken from one document's normalized text.
type Chunk struct {
	Book  string
	Text  string
	Index int // position in the global mapping, -1 until indexed
}

// Neighbor is a single nearest-neighbor hit returned by a vector index.
type Neighbor struct {
	Position int
	Distance float64
}

// Candidate is a chunk proposed by retrieval for one query.
type Candidate struct {
	Book     string
	Text     string
	Position int
	Distance float64
	Score    float64
}

// Pair is one (query, text) input for a relevance scorer.
type Pair struct {
	Query string
	Text  string
}

// Embedder maps texts to fixed-dimension dense vectors.
// The result has the same length and order as the input.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Scorer scores (query, text) pairs with a pairwise relevance model.
// The result has the same length and order as the input.
type Scorer interface {
	Name() string
	Score(ctx context.Context, pairs []Pair) ([]float64, error)
}

// Generator produces an answer for a single prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
