package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the index and ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	st, err := ragSvc.Status(context.Background())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	out := cmd.OutOrStdout()
	if st.IndexBuilt {
		fmt.Fprintf(out, "Index: %d chunks, dimension %d, build %s\n", st.Chunks, st.Dimension, st.BundleID)
	} else {
		fmt.Fprintf(out, "Index: not available (%v)\n", explain(st.IndexErr))
	}
	if b := st.LatestBuild; b != nil {
		fmt.Fprintf(out, "Last build: %s with %s, %d documents, %d chunks\n",
			b.BuiltAt.Local().Format(time.DateTime), b.Embedder, b.Documents, b.Chunks)
	}
	if len(st.Documents) == 0 {
		fmt.Fprintln(out, "No documents ingested.")
		return nil
	}
	fmt.Fprintf(out, "Documents (%d):\n", len(st.Documents))
	for _, d := range st.Documents {
		fmt.Fprintf(out, "  %-40s %8d words  %s\n", d.Name, d.Words, d.IngestedAt.Local().Format(time.DateTime))
	}
	return nil
}
