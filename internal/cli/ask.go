package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askFile      string
	askK         int
	askRerankTop int
)

var askCmd = &cobra.Command{
	Use:   "ask --file <document> <question>",
	Short: "Ask a question about a single document without indexing it",
	Long: `Parses one PDF or EPUB, indexes it in memory and answers the question
from it. Nothing is written to the cache or to the persisted index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askFile, "file", "", "PDF or EPUB document to ask about")
	addRetrievalFlags(askCmd, &askK, &askRerankTop)
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askFile == "" {
		return errors.New("--file is required")
	}
	ctx, cancel := queryContext()
	defer cancel()
	resp, err := ragSvc.AskDocument(ctx, askFile, strings.Join(args, " "), askK, askRerankTop)
	if err != nil {
		return err
	}
	printResponse(cmd.OutOrStdout(), resp)
	return nil
}
