// Package plaintext provides the fallback Normaliser for text-like files,
// including markdown, reStructuredText and LaTeX sources.
package plaintext

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/x-markdown",
		"text/x-rst",
		"text/x-tex",
		"application/x-tex",
		"text/csv",
		"application/json",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a raw document to a normalised document.
// Invalid UTF-8 sequences are dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ToValidUTF8(string(raw.Content), "")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	doc := domain.Document{
		ID:       filepath.Base(raw.URI),
		URI:      raw.URI,
		Title:    extractTitle(raw, content),
		Content:  content,
		Metadata: copyMetadata(raw.Metadata),
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType

	return &driven.NormaliseResult{Document: doc}, nil
}

// extractTitle checks metadata, then a leading markdown heading, then the URI.
func extractTitle(raw *domain.RawDocument, content string) string {
	if title, ok := raw.Metadata[domain.MetaTitle].(string); ok && title != "" {
		return title
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		break
	}

	filename := filepath.Base(raw.URI)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
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
