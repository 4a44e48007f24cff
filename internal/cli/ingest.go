package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ingestForce   bool
	ingestSummary bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract text from the documents in the data directory",
	Long: `Parses every PDF and EPUB in the data directory into the text cache.
Documents with a cached text are not parsed again unless --force is given.
Unsupported or unreadable files are reported and skipped.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-parse documents even when cached")
	ingestCmd.Flags().BoolVar(&ingestSummary, "summary", false, "print a short summary of each document")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	report, err := ragSvc.Ingest(context.Background(), ingestForce)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, t := range report.Texts {
		if t.Cached {
			fmt.Fprintf(out, "[CACHE] Loaded %s\n", t.Book)
		} else {
			fmt.Fprintf(out, "[NEW] Ingested %s\n", t.Book)
		}
		if ingestSummary {
			fmt.Fprintf(out, "        %s\n", ragSvc.Summarize(t.Text))
		}
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(out, "[SKIP] %s: %v\n", s.File, s.Err)
	}
	fmt.Fprintf(out, "%d documents ready, %d parsed, %d skipped\n", len(report.Texts), report.Parsed(), len(report.Skipped))
	return nil
}
