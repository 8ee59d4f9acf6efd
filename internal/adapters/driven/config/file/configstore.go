package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// ConfigFileName is the settings file inside the home directory.
const ConfigFileName = "config.toml"

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a TOML-backed driven.ConfigStore.
// Values are held flat under dot-notation keys and written back as nested
// tables, so "llm.classifier.model" becomes [llm.classifier] model = ...
type ConfigStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]any
}

// NewConfigStore opens <home>/config.toml, creating home if needed.
// A missing file is an empty configuration; a malformed one is an error.
func NewConfigStore(home string) (*ConfigStore, error) {
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		home = filepath.Join(userHome, ".paperchat")
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", home, err)
	}

	s := &ConfigStore{
		path:   filepath.Join(home, ConfigFileName),
		values: make(map[string]any),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	val, _ := s.Get(key)
	str, _ := val.(string)
	return str
}

// GetInt retrieves a whole-number configuration value. TOML decodes
// integers as int64; values set in this process may still be int.
func (s *ConfigStore) GetInt(key string) int {
	val, _ := s.Get(key)
	n, _ := AsInt(val)
	return n
}

// GetFloat retrieves a numeric configuration value as float64, so that
// "temperature = 0" reads the same as 0.0.
func (s *ConfigStore) GetFloat(key string) float64 {
	val, _ := s.Get(key)
	f, _ := AsFloat(val)
	return f
}

// Set stores a value and rewrites the file. The in-memory value is rolled
// back when the write fails.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.save(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.path
}

func (s *ConfigStore) save() error {
	data, err := toml.Marshal(nestMap(s.values))
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.path, err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	return nil
}

func (s *ConfigStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}
	s.values = flattenMap(tree, "")
	return nil
}

// AsInt converts a decoded TOML number to int. Floats are accepted only
// when they hold a whole number.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// AsFloat converts a decoded TOML number to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// flattenMap turns {"a": {"b": 1}} into {"a.b": 1}.
func flattenMap(tree map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(table, key) {
				flat[k] = v
			}
			continue
		}
		flat[key] = value
	}
	return flat
}

// nestMap is the inverse of flattenMap. A key whose prefix already holds a
// scalar stays at the top level as a quoted dotted key.
func nestMap(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// Shallow keys first so scalars are placed before deeper tables.
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.Count(keys[i], "."), strings.Count(keys[j], ".")
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})

	tree := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table, ok := descend(tree, parts[:len(parts)-1])
		leaf := parts[len(parts)-1]
		if _, taken := table[leaf]; !ok || taken {
			tree[key] = flat[key]
			continue
		}
		table[leaf] = flat[key]
	}
	return tree
}

// descend walks to the table at path, creating missing tables. It fails
// when a path element is already a scalar.
func descend(tree map[string]any, path []string) (map[string]any, bool) {
	node := tree
	for _, part := range path {
		next, exists := node[part]
		if !exists {
			child := make(map[string]any)
			node[part] = child
			node = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}
