package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("Who is Ishmael?", []domain.Candidate{
		{Book: "moby.epub", Text: "Call me Ishmael."},
		{Book: "notes.pdf", Text: "A sailor."},
	})
	want := "Answer the following question using the provided context.\n" +
		"If the context is insufficient, say you don't know.\n" +
		"\n" +
		"Context:\n" +
		"From moby.epub: Call me Ishmael.\n" +
		"\n" +
		"From notes.pdf: A sailor.\n" +
		"\n" +
		"Question: Who is Ishmael?\n" +
		"\n" +
		"Answer:"
	assert.Equal(t, want, got)
}

func TestBuildPrompt_TruncatesByCharacter(t *testing.T) {
	long := strings.Repeat("é", ContextChars+20)
	got := BuildPrompt("q", []domain.Candidate{{Book: "b", Text: long}})
	assert.Contains(t, got, "From b: "+strings.Repeat("é", ContextChars)+"\n\nQuestion: q")
	assert.NotContains(t, got, strings.Repeat("é", ContextChars+1))
}

func TestBuildPrompt_NoCandidates(t *testing.T) {
	got := BuildPrompt("q", nil)
	assert.Contains(t, got, "Context:\n\n\nQuestion: q")
}

type fakeGenerator struct {
	text   string
	err    error
	panics bool
	prompt string
	ctx    context.Context
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	g.ctx = ctx
	if g.panics {
		panic("boom")
	}
	return g.text, g.err
}

var cands = []domain.Candidate{{Book: "b", Text: "context text", Score: 1}}

func TestAnswer_Success(t *testing.T) {
	g := &fakeGenerator{text: "forty-two"}
	res := NewAnswerer(g, time.Second, nil).Answer(context.Background(), "q", cands)

	assert.Equal(t, Result{Text: "forty-two"}, res)
	assert.Equal(t, BuildPrompt("q", cands), g.prompt)
	_, hasDeadline := g.ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestAnswer_FallbackOnUnreachable(t *testing.T) {
	g := &fakeGenerator{err: errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")}
	res := NewAnswerer(g, 0, nil).Answer(context.Background(), "q", cands)

	assert.True(t, res.Fallback)
	assert.Empty(t, res.Text)
	assert.Equal(t, FallbackNotice, res.Notice)
	assert.ErrorIs(t, res.Err, domain.ErrAnswerService)
	assert.Contains(t, res.Err.Error(), "connection refused")
}

func TestAnswer_FallbackKeepsServiceError(t *testing.T) {
	cause := errors.Join(domain.ErrAnswerService, errors.New("model not found"))
	res := NewAnswerer(&fakeGenerator{err: cause}, 0, nil).Answer(context.Background(), "q", cands)
	require.True(t, res.Fallback)
	assert.Same(t, cause, res.Err)
}

func TestAnswer_FallbackOnPanic(t *testing.T) {
	var res Result
	assert.NotPanics(t, func() {
		res = NewAnswerer(&fakeGenerator{panics: true}, 0, nil).Answer(context.Background(), "q", cands)
	})
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, domain.ErrAnswerService)
}

func TestAnswer_Disabled(t *testing.T) {
	res := NewAnswerer(nil, 0, nil).Answer(context.Background(), "q", cands)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackNotice, res.Notice)
	assert.ErrorIs(t, res.Err, domain.ErrAnswerService)
}
