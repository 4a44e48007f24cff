package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"knowledge-rag/internal/domain"
)

// FallbackNotice replaces the answer when generation fails.
const FallbackNotice = "Answer service unavailable. Showing retrieved chunks only."

// Result is the outcome of one answer attempt. When Fallback is set, Text is
// empty, Notice carries FallbackNotice and Err records the cause.
type Result struct {
	Text     string
	Fallback bool
	Notice   string
	Err      error
}

// Answerer prompts a generator with retrieved context.
type Answerer struct {
	generator domain.Generator
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAnswerer creates an answerer. A nil generator always falls back.
// A zero timeout leaves the caller's deadline in charge.
func NewAnswerer(generator domain.Generator, timeout time.Duration, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{generator: generator, timeout: timeout, logger: logger}
}

var errNoGenerator = errors.New("answer generation disabled")

// Answer generates an answer for query. Generator failures, including panics,
// are reported through Result rather than returned.
func (a *Answerer) Answer(ctx context.Context, query string, candidates []domain.Candidate) (res Result) {
	if a.generator == nil {
		return fallback(errNoGenerator)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			res = fallback(fmt.Errorf("generator panic: %v", r))
			a.logger.Error("answer generation panicked", zap.Any("panic", r))
		}
	}()

	text, err := a.generator.Generate(ctx, BuildPrompt(query, candidates))
	if err != nil {
		a.logger.Warn("answer generation failed, falling back to sources",
			zap.String("generator", a.generator.Name()), zap.Error(err))
		return fallback(err)
	}
	return Result{Text: text}
}

func fallback(cause error) Result {
	err := cause
	if !errors.Is(err, domain.ErrAnswerService) {
		err = fmt.Errorf("%w: %v", domain.ErrAnswerService, cause)
	}
	return Result{Fallback: true, Notice: FallbackNotice, Err: err}
}
