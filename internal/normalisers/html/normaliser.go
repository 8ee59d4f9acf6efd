package html

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Elements whose text is never part of the readable content.
const droppedElements = "script, style, noscript, svg, head, nav, footer, template, iframe"

// Elements that end a line of text.
const blockElements = "p, div, br, hr, h1, h2, h3, h4, h5, h6, li, tr, blockquote, pre, table, section, article, dd, dt"

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML document to readable text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := extractTitle(page, raw.URI)

	page.Find(droppedElements).Remove()
	page.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	doc := domain.Document{
		ID:       filepath.Base(raw.URI),
		URI:      raw.URI,
		Title:    title,
		Content:  cleanText(page.Text()),
		Metadata: copyMetadata(raw.Metadata),
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["format"] = "html"

	return &driven.NormaliseResult{Document: doc}, nil
}

// extractTitle prefers citation metadata, then <title>, then the first
// heading, then the filename.
func extractTitle(page *goquery.Document, uri string) string {
	if v, ok := page.Find(`meta[name="citation_title"]`).First().Attr("content"); ok {
		if title := collapse(v); title != "" {
			return title
		}
	}
	if title := collapse(page.Find("title").First().Text()); title != "" {
		return title
	}
	if title := collapse(page.Find("h1").First().Text()); title != "" {
		return title
	}

	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}

// cleanText trims each line, collapses inner whitespace and drops blank lines.
func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = collapse(line); line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
