package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/service"
	"knowledge-rag/internal/textnorm"
)

const previewChars = 200

func printResponse(w io.Writer, resp *service.Response) {
	fmt.Fprint(w, "\n--- Answer ---\n\n")
	if resp.Fallback {
		fmt.Fprintf(w, "WARNING: %s\n", resp.Notice)
	} else {
		fmt.Fprintln(w, resp.Answer)
	}
	fmt.Fprint(w, "\n--- Sources ---\n")
	for i, c := range resp.Candidates {
		fmt.Fprintf(w, "%d. %s (Score: %.4f)\n", i+1, c.Book, c.Score)
		fmt.Fprintf(w, "Preview: %s...\n", textnorm.Truncate(c.Text, previewChars))
		fmt.Fprintln(w, strings.Repeat("-", 60))
	}
}

// queryContext applies the configured per-query deadline.
func queryContext() (context.Context, context.CancelFunc) {
	if d := appConfig.QueryTimeout(); d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}

func explain(err error) error {
	switch {
	case errors.Is(err, domain.ErrIndexNotBuilt):
		return fmt.Errorf("%w (run `rag index` first)", err)
	case errors.Is(err, domain.ErrInconsistentIndex):
		return fmt.Errorf("%w (run `rag index` to rebuild)", err)
	}
	return err
}
