// Package pdf provides a Normaliser for PDF documents backed by pdftotext.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// ErrPDFToolNotFound is returned when pdftotext is not on PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

// maxTitleLen bounds how long a first line may be and still count as a title.
const maxTitleLen = 200

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text layer of a PDF. pdftotext reads from a path,
// so the bytes are spooled to a temporary file first.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	var out []byte
	err := withTempFile(raw.Content, func(path string) error {
		var runErr error
		out, runErr = n.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", path, "-")
		return runErr
	})
	switch {
	case errors.Is(err, ErrPDFToolNotFound):
		return nil, fmt.Errorf("%w\n%s", err, InstallInstructions())
	case err != nil:
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	text := cleanText(out)
	meta := maps.Clone(raw.Metadata)
	if meta == nil {
		meta = make(map[string]any, 2)
	}
	meta["mime_type"] = raw.MIMEType
	meta["format"] = "pdf"

	return &driven.NormaliseResult{Document: domain.Document{
		ID:       filepath.Base(raw.URI),
		URI:      raw.URI,
		Title:    extractTitle(text, raw.URI),
		Content:  text,
		Metadata: meta,
	}}, nil
}

// CheckAvailable reports whether pdftotext can be found.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions describes how to install pdftotext.
func InstallInstructions() string {
	return `PDF extraction requires pdftotext (part of poppler).
  macOS:         brew install poppler
  Debian/Ubuntu: sudo apt install poppler-utils
  Fedora:        sudo dnf install poppler-utils`
}

func withTempFile(content []byte, fn func(path string) error) error {
	tmp, err := os.CreateTemp("", "paperchat-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(content)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	return fn(tmp.Name())
}

// cleanText drops invalid UTF-8 and turns page breaks into newlines.
func cleanText(out []byte) string {
	text := strings.ToValidUTF8(string(out), "")
	text = strings.ReplaceAll(text, "\f", "\n")
	return strings.TrimSpace(text)
}

// extractTitle uses the first short non-empty line, falling back to the
// file name with separators turned into spaces.
func extractTitle(content, uri string) string {
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(strings.Trim(line, "\x00"))
		if line != "" && len(line) <= maxTitleLen {
			return strings.Join(strings.Fields(line), " ")
		}
	}

	name := strings.TrimSuffix(filepath.Base(uri), filepath.Ext(uri))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
