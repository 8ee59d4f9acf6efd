package driven

// ConfigStore provides access to persisted key/value configuration.
// Nested tables are addressed with dot-notation keys ("llm.classifier.model").
type ConfigStore interface {
	// Get retrieves a value and reports whether the key exists.
	Get(key string) (any, bool)

	// GetString returns "" if the key is missing or not a string.
	GetString(key string) string

	// GetInt returns 0 if the key is missing or not a whole number.
	GetInt(key string) int

	// GetFloat returns 0 if the key is missing or not numeric.
	GetFloat(key string) float64

	// Set stores a value and persists it before returning.
	Set(key string, value any) error

	// Path describes where values are persisted.
	Path() string
}
