package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/service"
)

type fakePort struct {
	resp  *service.Response
	err   error
	calls []string
	k, rt int
}

func (f *fakePort) Query(_ context.Context, q string, k, rerankTop int) (*service.Response, error) {
	f.calls = append(f.calls, q)
	f.k, f.rt = k, rerankTop
	if f.err != nil {
		return nil, f.err
	}
	r := *f.resp
	r.Query = q
	return &r, nil
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// submit types q, presses enter and runs the query command synchronously.
func submit(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.True(t, m.busy)
	require.NotNil(t, cmd)
	next, _ = m.Update(m.query(q)())
	return next.(Model)
}

func TestModel_QueryShowsAnswerAndSources(t *testing.T) {
	port := &fakePort{resp: &service.Response{
		Answer: "Ishmael narrates.",
		Candidates: []domain.Candidate{
			{Book: "moby.epub", Text: "Call me Ishmael. Some years ago.", Score: 0.9},
			{Book: "notes.pdf", Text: "Other text.", Score: 0.2},
		},
	}}
	m := sized(t, New(port, "summary line", Options{K: 7, RerankTop: 2}))
	assert.Contains(t, m.View(), "No results yet.")

	m = submit(t, m, "who is ishmael")
	assert.False(t, m.busy)
	assert.Equal(t, []string{"who is ishmael"}, port.calls)
	assert.Equal(t, 7, port.k)
	assert.Equal(t, 2, port.rt)
	assert.Empty(t, m.input.Value())

	out := m.render()
	assert.Contains(t, out, "Ishmael narrates.")
	assert.Contains(t, out, "Source 1/2")
	assert.Contains(t, out, "moby.epub (Score: 0.9000)")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.render(), "notes.pdf")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Contains(t, m.render(), "moby.epub")
}

func TestModel_FallbackNotice(t *testing.T) {
	port := &fakePort{resp: &service.Response{
		Fallback:   true,
		Notice:     "Answer service unavailable.",
		Candidates: []domain.Candidate{{Book: "b", Text: "t"}},
	}}
	m := submit(t, sized(t, New(port, "", Options{})), "q")
	assert.Equal(t, "Answer service unavailable.", m.status)
	assert.Contains(t, m.render(), "Answer service unavailable.")
	assert.Contains(t, m.render(), "Source 1/1")
}

func TestModel_QueryError(t *testing.T) {
	port := &fakePort{err: errors.New("index not built")}
	m := submit(t, sized(t, New(port, "", Options{})), "q")
	assert.Equal(t, "Error: index not built", m.status)
	assert.Nil(t, m.resp)
}

func TestModel_ExitAndEmptyInput(t *testing.T) {
	m := sized(t, New(&fakePort{}, "", Options{}))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, next.(Model).busy)

	for _, word := range []string{"exit", "EXIT", "  Exit "} {
		m.input.SetValue(word)
		_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd, word)
		assert.Equal(t, tea.Quit(), cmd(), word)
	}
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Cats sleep. Whales sing loudly! Dogs bark.", "whales sing")
	assert.Contains(t, out, "Cats sleep.")
	assert.Contains(t, out, "Whales sing loudly!")
	assert.Contains(t, out, "Dogs bark.")
	assert.Equal(t, "", highlightBestSentence("", "q"))
	assert.Equal(t, "No match here.", highlightBestSentence("No match here.", "zebra"))
}
