package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryK         int
	queryRerankTop int
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Answers a question from the indexed documents. The k nearest chunks are
reranked and the best ones are passed to the language model as context.
Without a question, reads questions line by line until "exit".
If the language model is unreachable, only the sources are shown.`,
	RunE: runQuery,
}

func init() {
	addRetrievalFlags(queryCmd, &queryK, &queryRerankTop)
	rootCmd.AddCommand(queryCmd)
}

func addRetrievalFlags(cmd *cobra.Command, k, rerankTop *int) {
	cmd.Flags().IntVarP(k, "k", "k", 0, "nearest chunks to consider (default from config)")
	cmd.Flags().IntVar(rerankTop, "rerank-top", 0, "chunks kept after reranking (default from config)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := ragSvc.Open(context.Background()); err != nil {
		return explain(err)
	}
	if len(args) > 0 {
		return askOnce(cmd, strings.Join(args, " "))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Knowledge RAG interactive mode")
	fmt.Fprint(out, "Type your question, or 'exit' to quit.\n\n")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "Your question: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(q, "exit") {
			fmt.Fprintln(out, "Goodbye")
			return nil
		}
		if q == "" {
			continue
		}
		if err := askOnce(cmd, q); err != nil {
			fmt.Fprintf(out, "Error: %v\n\n", err)
		}
	}
}

func askOnce(cmd *cobra.Command, q string) error {
	ctx, cancel := queryContext()
	defer cancel()
	resp, err := ragSvc.Query(ctx, q, queryK, queryRerankTop)
	if err != nil {
		return explain(err)
	}
	printResponse(cmd.OutOrStdout(), resp)
	return nil
}
