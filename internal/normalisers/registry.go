package normalisers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/normalisers/html"
	"github.com/custodia-labs/paperchat/internal/normalisers/pdf"
	"github.com/custodia-labs/paperchat/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw documents to normalisers by MIME type.
// When several normalisers claim a type the highest priority wins.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// NewDefaultRegistry registers the pdf, html and plaintext normalisers.
// A nil runner uses the system pdftotext.
func NewDefaultRegistry(runner pdf.CommandRunner) *Registry {
	r := NewRegistry()
	if runner != nil {
		r.Register(pdf.NewWithRunner(runner))
	} else {
		r.Register(pdf.New())
	}
	r.Register(html.New())
	r.Register(plaintext.New())
	return r
}

// Register adds a normaliser for each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range n.SupportedMIMETypes() {
		list := append(r.byMIME[mimeType], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[mimeType] = list
	}
}

// Normalise picks a normaliser for raw and runs it.
// An empty MIMEType is sniffed from the URI and content first.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if raw.MIMEType == "" {
		raw.MIMEType = DetectMIMEType(raw.URI, raw.Content)
	}

	r.mu.RLock()
	list := r.byMIME[baseMIME(raw.MIMEType)]
	r.mu.RUnlock()

	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, raw.MIMEType)
	}
	return list[0].Normalise(ctx, raw)
}

// SupportedMIMETypes lists every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for t := range r.byMIME {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// SupportedExtensions lists the file extensions whose MIME type has a
// registered normaliser, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(extensionTypes))
	for ext, t := range extensionTypes {
		if len(r.byMIME[t]) > 0 {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

var extensionTypes = map[string]string{
	".pdf":      "application/pdf",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".rst":      "text/x-rst",
	".tex":      "text/x-tex",
	".csv":      "text/csv",
	".json":     "application/json",
}

var pdfMagic = []byte("%PDF-")

// DetectMIMEType infers a MIME type from the PDF signature, the file
// extension, and finally content sniffing.
func DetectMIMEType(uri string, content []byte) string {
	if bytes.HasPrefix(content, pdfMagic) {
		return "application/pdf"
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(uri))]; ok {
		return t
	}
	if len(content) == 0 {
		return "text/plain"
	}
	return baseMIME(http.DetectContentType(content))
}

// baseMIME drops parameters such as "; charset=utf-8".
func baseMIME(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
