// Package cli implements the rag command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"knowledge-rag/internal/config"
	"knowledge-rag/internal/ingest"
	"knowledge-rag/internal/logging"
	"knowledge-rag/internal/service"
)

// ragService is the subset of *service.RAGService the commands use.
type ragService interface {
	Ingest(ctx context.Context, force bool) (*ingest.Report, error)
	Summarize(text string) string
	BuildIndex(ctx context.Context, force bool) (*service.BuildResult, error)
	Open(ctx context.Context) error
	Query(ctx context.Context, q string, k, rerankTop int) (*service.Response, error)
	AskDocument(ctx context.Context, path, q string, k, rerankTop int) (*service.Response, error)
	Status(ctx context.Context) (*service.Status, error)
	Close() error
}

var (
	cfgPath string
	verbose bool

	appConfig *config.AppConfig
	logger    = zap.NewNop()
	ragSvc    ragService
	ownsSvc   bool

	newService = func(cfg *config.AppConfig, l *zap.Logger) (ragService, error) {
		return service.FromConfig(cfg, l)
	}
)

var rootCmd = &cobra.Command{
	Use:   "rag",
	Short: "Ask questions about your PDF and EPUB library",
	Long: `rag ingests PDF and EPUB documents, indexes them as overlapping word
chunks with dense embeddings, and answers questions from the most relevant
chunks using a local language model.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML or TOML config file (default ./config.yaml or ~/.config/rag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfgPath == "" {
		appConfig, _, err = config.LoadDefault()
	} else {
		appConfig, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	level := appConfig.Logging.Level
	if verbose {
		level = "debug"
	}
	if logger, err = logging.New(level, appConfig.Logging.Format); err != nil {
		return err
	}

	if ragSvc == nil {
		svc, err := newService(appConfig, logger)
		if err != nil {
			return err
		}
		ragSvc, ownsSvc = svc, true
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	_ = logger.Sync()
	if !ownsSvc || ragSvc == nil {
		return nil
	}
	err := ragSvc.Close()
	ragSvc, ownsSvc = nil, false
	return err
}
