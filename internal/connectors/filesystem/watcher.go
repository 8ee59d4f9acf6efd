// Package filesystem watches a local directory tree for documents to ingest.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/paperchat/internal/logger"
)

// Watcher reports documents created or rewritten under root. Hidden files
// and directories are ignored, as are files with unsupported extensions.
type Watcher struct {
	root       string
	extensions map[string]bool
}

// New creates a watcher for root accepting the given extensions
// (".pdf", ".md", ...). Matching is case-insensitive.
func New(root string, extensions []string) *Watcher {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Watcher{root: root, extensions: exts}
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Scan lists the documents already present under root, sorted.
func (w *Watcher) Scan() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != w.root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", w.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Watch emits document paths until ctx is done. Directories created after
// the call are watched as well. The channel is closed on return.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", w.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", w.root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.addTree(fw, w.root); err != nil {
		fw.Close()
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer fw.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) && isDir(event.Name) && !isHidden(event.Name) {
					if err := w.addTree(fw, event.Name); err != nil {
						logger.Warn("watch: %v", err)
					}
					continue
				}
				path, ok := w.handleFsEvent(event)
				if !ok {
					continue
				}
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch: %v", err)
			}
		}
	}()

	return out, nil
}

// handleFsEvent returns the document path for a create or write event.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(event.Name) || !w.supported(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) supported(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

// isHidden reports whether the final path element starts with a dot.
func isHidden(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
