package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"knowledge-rag/internal/service"
	"knowledge-rag/internal/textnorm"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Query(ctx context.Context, q string, k, rerankTop int) (*service.Response, error)
}

// Options holds the per-query knobs.
type Options struct {
	K         int
	RerankTop int
	Timeout   time.Duration
}

type queryResultMsg struct {
	query string
	resp  *service.Response
	err   error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service  RAGPort
	opts     Options
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	resp     *service.Response
	summary  string
	status   string
	cursor   int
	ready    bool
	busy     bool
}

// New creates a new TUI model instance. summary is shown under the header.
func New(svc RAGPort, summary string, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		service:  svc,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Index loaded. Ask a question.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) query(q string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if m.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
			defer cancel()
		}
		resp, err := m.service.Query(ctx, q, m.opts.K, m.opts.RerankTop)
		return queryResultMsg{query: q, resp: resp, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.render())
		return m, nil
	case queryResultMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.resp = nil
		} else {
			m.resp = msg.resp
			m.cursor = 0
			m.status = fmt.Sprintf("Results for %q", msg.query)
			if msg.resp.Fallback {
				m.status = msg.resp.Notice
			}
		}
		m.viewport.SetContent(m.render())
		m.viewport.GotoTop()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if strings.EqualFold(q, "exit") {
				return m, tea.Quit
			}
			if q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Searching for %q", q)
				m.input.SetValue("")
				return m, tea.Batch(m.query(q), m.spinner.Tick)
			}
			return m, nil
		case "down", "tab":
			if m.resp != nil && len(m.resp.Candidates) > 0 {
				m.cursor = (m.cursor + 1) % len(m.resp.Candidates)
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "up", "shift+tab":
			if m.resp != nil && len(m.resp.Candidates) > 0 {
				n := len(m.resp.Candidates)
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Knowledge RAG")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	status = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) render() string {
	if m.resp == nil {
		return "No results yet."
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Answer"))
	b.WriteString("\n")
	if m.resp.Fallback {
		b.WriteString(warnStyle.Render(m.resp.Notice))
	} else {
		b.WriteString(m.resp.Answer)
	}
	b.WriteString("\n\n")

	if len(m.resp.Candidates) == 0 {
		b.WriteString("No sources.")
		return b.String()
	}
	c := m.resp.Candidates[m.cursor]
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Source %d/%d", m.cursor+1, len(m.resp.Candidates))))
	b.WriteString(fmt.Sprintf("  %s (Score: %.4f)\n\n", c.Book, c.Score))
	b.WriteString(highlightBestSentence(textnorm.Truncate(c.Text, 2000), m.resp.Query))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sectionStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	qTokens := toTokenSet(query)
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	out := make([]string, 0, len(sentences))
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if i == bestIdx {
			s = highlightStyle.Render(s)
		}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
