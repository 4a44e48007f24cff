package ingest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"knowledge-rag/internal/domain"
)

const containerPath = "META-INF/container.xml"

type epubContainer struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// ParseEPUB returns the body text of every XHTML document in reading
// (spine) order. Documents listed in the manifest but not in the spine
// are ignored.
func ParseEPUB(p string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", fmt.Errorf("%w: open epub: %v", domain.ErrUnreadableDocument, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var container epubContainer
	if err := decodeXML(files, containerPath, &container); err != nil {
		return "", err
	}
	opfPath := ""
	for _, rf := range container.Rootfiles {
		if rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml" {
			opfPath = rf.FullPath
			break
		}
	}
	if opfPath == "" {
		return "", fmt.Errorf("%w: epub has no package document", domain.ErrUnreadableDocument)
	}

	var pkg opfPackage
	if err := decodeXML(files, opfPath, &pkg); err != nil {
		return "", err
	}
	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		if isXHTML(item.MediaType) {
			hrefs[item.ID] = item.Href
		}
	}

	base := path.Dir(opfPath)
	var sb strings.Builder
	for _, ref := range pkg.Spine {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		name := resolveHref(base, href)
		f, ok := files[name]
		if !ok {
			return "", fmt.Errorf("%w: spine item %s missing from archive", domain.ErrUnreadableDocument, name)
		}
		if err := appendBodyText(&sb, f); err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrUnreadableDocument, name, err)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func isXHTML(mediaType string) bool {
	return mediaType == "application/xhtml+xml" || mediaType == "text/html"
}

func resolveHref(base, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	if base == "." {
		return path.Clean(href)
	}
	return path.Join(base, href)
}

func decodeXML(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("%w: epub missing %s", domain.ErrUnreadableDocument, name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrUnreadableDocument, name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrUnreadableDocument, name, err)
	}
	return nil
}

func appendBodyText(sb *strings.Builder, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	doc, err := html.Parse(io.LimitReader(rc, 64<<20))
	if err != nil {
		return err
	}
	body := findBody(doc)
	if body == nil {
		return nil
	}
	writeText(sb, body)
	return nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// writeText appends the text content of n, separating block elements with
// newlines so adjacent paragraphs do not run together.
func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Svg:
			return
		case atom.Br:
			sb.WriteByte('\n')
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		sb.WriteByte('\n')
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Tr, atom.Blockquote, atom.Pre, atom.Table, atom.Section, atom.Article:
		return true
	}
	return false
}
