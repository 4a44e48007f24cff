package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index over all ingested documents",
	Long: `Ingests the data directory, splits every document into overlapping word
chunks, embeds them and saves the index together with its chunk mapping.
The previous index stays in place until the new one is completely written.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "re-parse documents even when cached")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	res, err := ragSvc.BuildIndex(context.Background(), indexForce)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, s := range res.Ingest.Skipped {
		fmt.Fprintf(out, "[SKIP] %s: %v\n", s.File, s.Err)
	}
	fmt.Fprintf(out, "Indexed %d chunks from %d documents (dimension %d, build %s)\n",
		res.Chunks, res.Documents, res.Dimension, res.BundleID)
	return nil
}
