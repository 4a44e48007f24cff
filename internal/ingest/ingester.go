package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/fsutil"
	"knowledge-rag/internal/textnorm"
)

// ErrCacheCollision is reported for a document whose cache name is already
// taken by an earlier document in the same run (e.g. book.pdf and book.epub).
var ErrCacheCollision = errors.New("cache name already used by another document")

// Text is the normalized text of one ingested document.
type Text struct {
	Book   string // source file name
	Path   string // source file path
	Cache  string // cache file path
	Text   string
	Cached bool // loaded from cache rather than parsed
}

// Report is the outcome of one ingestion run.
type Report struct {
	Texts   []Text
	Skipped []domain.IngestError
}

// Parsed counts documents that were parsed in this run.
func (r *Report) Parsed() int {
	n := 0
	for _, t := range r.Texts {
		if !t.Cached {
			n++
		}
	}
	return n
}

// Ingester turns the documents of a data directory into cached text.
type Ingester struct {
	dataDir  string
	cacheDir string
	parsers  Registry
	logger   *zap.Logger
}

// NewIngester creates an ingester. A nil registry uses DefaultRegistry.
func NewIngester(dataDir, cacheDir string, parsers Registry, logger *zap.Logger) *Ingester {
	if parsers == nil {
		parsers = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{dataDir: dataDir, cacheDir: cacheDir, parsers: parsers, logger: logger}
}

// Run ingests every document in the data directory, in file name order.
// A document whose cache file exists is loaded from the cache unless force
// is set. Unsupported and unreadable documents are skipped and listed in the
// report; only failures of the directories themselves are returned.
func (in *Ingester) Run(ctx context.Context, force bool) (*Report, error) {
	entries, err := os.ReadDir(in.dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	if err := os.MkdirAll(in.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	report := &Report{Texts: []Text{}}
	claimed := make(map[string]string)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		log := in.logger.With(zap.String("file", name))

		parser, ok := in.parsers.Lookup(name)
		if !ok {
			log.Info("skipping unsupported file")
			report.Skipped = append(report.Skipped, domain.IngestError{
				File: name,
				Err:  fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, filepath.Ext(name)),
			})
			continue
		}

		cacheName := CacheName(name)
		if prev, taken := claimed[cacheName]; taken {
			log.Warn("skipping document with colliding cache name", zap.String("other", prev))
			report.Skipped = append(report.Skipped, domain.IngestError{
				File: name,
				Err:  fmt.Errorf("%w: %s (%s)", ErrCacheCollision, cacheName, prev),
			})
			continue
		}
		claimed[cacheName] = name

		text, err := in.ingestOne(name, parser, force)
		if err != nil {
			log.Warn("skipping unreadable document", zap.Error(err))
			report.Skipped = append(report.Skipped, domain.IngestError{File: name, Err: err})
			continue
		}
		if text.Cached {
			log.Debug("loaded from cache", zap.String("cache", text.Cache))
		} else {
			log.Info("ingested document", zap.Int("words", len(textnorm.Words(text.Text))))
		}
		report.Texts = append(report.Texts, text)
	}
	return report, nil
}

func (in *Ingester) ingestOne(name string, parser Parser, force bool) (Text, error) {
	src := filepath.Join(in.dataDir, name)
	cache := filepath.Join(in.cacheDir, CacheName(name))
	t := Text{Book: name, Path: src, Cache: cache}

	if !force {
		data, err := os.ReadFile(cache)
		switch {
		case err == nil:
			t.Text = textnorm.Normalize(string(data))
			t.Cached = true
			return t, nil
		case !errors.Is(err, fs.ErrNotExist):
			return t, fmt.Errorf("read cache: %w", err)
		}
	}

	raw, err := parser.Parse(src)
	if err != nil {
		return t, unreadable(err)
	}
	t.Text = textnorm.Normalize(raw)
	if err := fsutil.WriteFile(cache, func(w io.Writer) error {
		_, err := io.WriteString(w, t.Text)
		return err
	}); err != nil {
		return t, fmt.Errorf("write cache: %w", err)
	}
	return t, nil
}
