// Package staging holds downloaded artifacts on disk until they are ingested.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Area implements the interface.
var _ driven.StagingArea = (*Area)(nil)

// MaxNameBytes bounds the sanitised stem, excluding the extension.
const MaxNameBytes = 120

const (
	extension    = ".pdf"
	fallbackName = "paper"
	maxSuffix    = 1000
)

// Area is a directory of staged files.
type Area struct {
	dir string
}

// NewArea returns an area rooted at dir. The directory is created on first Stage.
func NewArea(dir string) *Area {
	return &Area{dir: dir}
}

// Dir returns the staging directory.
func (a *Area) Dir() string {
	return a.dir
}

// Stage copies r into a file named after title and returns its path.
// A name already taken gets a " (n)" suffix. Partial files are removed on error.
func (a *Area) Stage(ctx context.Context, title string, r io.Reader) (string, error) {
	if err := os.MkdirAll(a.dir, 0o700); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	f, path, err := a.create(SanitiseFilename(title))
	if err != nil {
		return "", err
	}

	_, copyErr := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	return path, nil
}

// Remove deletes a staged file. A file that is already gone is not an error.
func (a *Area) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

func (a *Area) create(name string) (*os.File, string, error) {
	stem := strings.TrimSuffix(name, extension)
	for n := 0; n < maxSuffix; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, extension)
		}
		path := filepath.Join(a.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create staged file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("no free name for %q in %s", name, a.dir)
}

// SanitiseFilename turns a title into a safe file name ending in ".pdf".
func SanitiseFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == utf8.RuneError:
			b.WriteRune(' ')
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	name := strings.Join(strings.Fields(b.String()), " ")
	name = strings.Trim(name, ". ")
	name = truncate(name, MaxNameBytes)
	name = strings.TrimRight(name, ". ")
	if name == "" {
		name = fallbackName
	}
	return name + extension
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ctxReader stops a copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
