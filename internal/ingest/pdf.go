package ingest

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"knowledge-rag/internal/domain"
)

// ParsePDF returns the plain text of every page, in page order.
// Malformed files can make the PDF reader panic; that is reported as an
// unreadable document.
func ParsePDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: pdf reader: %v", domain.ErrUnreadableDocument, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", domain.ErrUnreadableDocument, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		s, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", domain.ErrUnreadableDocument, i, err)
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}
