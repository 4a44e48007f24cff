// Package answer turns retrieved candidates into a generated answer, falling
// back to the candidates alone when generation is unavailable.
package answer

import (
	"strings"

	"knowledge-rag/internal/domain"
	"knowledge-rag/internal/textnorm"
)

// ContextChars bounds how much of each candidate chunk goes into the prompt.
const ContextChars = 500

// BuildPrompt renders the generation prompt for query over the candidates,
// in the order given.
func BuildPrompt(query string, candidates []domain.Candidate) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = "From " + c.Book + ": " + textnorm.Truncate(c.Text, ContextChars)
	}

	var b strings.Builder
	b.WriteString("Answer the following question using the provided context.\n")
	b.WriteString("If the context is insufficient, say you don't know.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(parts, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
