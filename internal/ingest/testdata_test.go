package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// writePDF writes a minimal single-font PDF with one page per entry of
// pages, computing the cross-reference offsets as it goes.
func writePDF(t *testing.T, path string, pages ...string) {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	// 1: catalog, 2: pages, 3: font, then (page, content) per page.
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

type epubChapter struct {
	ID   string
	Href string
	Body string
}

// writeEPUB writes an EPUB whose spine lists chapters in the given order
// while the manifest lists them reversed. Hrefs may be URL-escaped and carry
// a fragment; archive entries use the plain path.
func writeEPUB(t *testing.T, path string, chapters ...epubChapter) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add := func(name, content string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	add("mimetype", "application/epub+zip")
	add("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`)

	manifest, spine := "", ""
	for i := len(chapters) - 1; i >= 0; i-- {
		c := chapters[i]
		manifest += fmt.Sprintf(`<item id="%s" href="%s" media-type="application/xhtml+xml"/>`+"\n", c.ID, c.Href)
	}
	manifest += `<item id="css" href="style.css" media-type="text/css"/>` + "\n"
	for _, c := range chapters {
		spine += fmt.Sprintf(`<itemref idref="%s"/>`+"\n", c.ID)
	}
	add("OEBPS/content.opf", fmt.Sprintf(`<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata/>
  <manifest>
%s  </manifest>
  <spine>
%s  </spine>
</package>`, manifest, spine))
	add("OEBPS/style.css", "p { color: red }")
	for _, c := range chapters {
		href := c.Href
		if i := strings.IndexByte(href, '#'); i >= 0 {
			href = href[:i]
		}
		name, err := url.PathUnescape(href)
		require.NoError(t, err)
		add("OEBPS/"+name, fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>ignored title</title><style>p{}</style></head>
<body>%s</body></html>`, c.Body))
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}
