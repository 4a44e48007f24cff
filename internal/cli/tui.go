package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"knowledge-rag/internal/tui"
)

var (
	tuiK         int
	tuiRerankTop int
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Ask questions in an interactive terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	addRetrievalFlags(tuiCmd, &tuiK, &tuiRerankTop)
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	if err := ragSvc.Open(ctx); err != nil {
		return explain(err)
	}
	summary := ""
	if st, err := ragSvc.Status(ctx); err == nil && st.IndexBuilt {
		summary = fmt.Sprintf("%d chunks from %d documents. Up/Down cycles sources, Esc quits.", st.Chunks, len(st.Documents))
	}

	m := tui.New(ragSvc, summary, tui.Options{K: tuiK, RerankTop: tuiRerankTop, Timeout: appConfig.QueryTimeout()})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
	_, err := p.Run()
	return err
}
