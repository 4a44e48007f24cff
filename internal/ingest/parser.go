// Package ingest extracts normalized text from source documents and keeps a
// plain-text cache of it, one file per document.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/textnorm"
)

// Parser extracts raw text from one document format.
type Parser interface {
	Parse(path string) (string, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(path string) (string, error)

// Parse calls f(path).
func (f ParserFunc) Parse(path string) (string, error) { return f(path) }

// Registry maps lowercase file extensions (with the dot) to parsers.
type Registry map[string]Parser

// DefaultRegistry returns the built-in parsers for PDF and EPUB.
func DefaultRegistry() Registry {
	return Registry{
		".pdf":  ParserFunc(ParsePDF),
		".epub": ParserFunc(ParseEPUB),
	}
}

// Lookup returns the parser for name's extension.
func (r Registry) Lookup(name string) (Parser, bool) {
	p, ok := r[strings.ToLower(filepath.Ext(name))]
	return p, ok
}

// Extensions lists the supported extensions in sorted order.
func (r Registry) Extensions() []string {
	out := make([]string, 0, len(r))
	for ext := range r {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Parse extracts and normalizes the text of the document at path.
// Failures are *domain.IngestError wrapping ErrUnsupportedDocument or
// ErrUnreadableDocument.
func (r Registry) Parse(path string) (string, error) {
	name := filepath.Base(path)
	p, ok := r.Lookup(name)
	if !ok {
		return "", &domain.IngestError{File: name, Err: fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, filepath.Ext(name))}
	}
	raw, err := p.Parse(path)
	if err != nil {
		return "", &domain.IngestError{File: name, Err: unreadable(err)}
	}
	return textnorm.Normalize(raw), nil
}

// ParseFile extracts the normalized text of a single document using the
// built-in parsers.
func ParseFile(path string) (string, error) {
	return DefaultRegistry().Parse(path)
}

// CacheName is the cache file name for a document: its extension replaced
// by ".txt".
func CacheName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ".txt"
}

func unreadable(err error) error {
	if errors.Is(err, domain.ErrUnreadableDocument) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUnreadableDocument, err)
}
