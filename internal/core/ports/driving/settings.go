package driving

import "github.com/custodia-labs/paperchat/internal/core/domain"

// SettingsService loads and edits application settings.
type SettingsService interface {
	// Get returns validated settings with defaults and environment applied.
	Get() (*domain.AppSettings, error)

	// Set stores a single configuration key.
	Set(key, value string) error

	// Keys lists the configuration keys understood by Set.
	Keys() []string

	// Values renders the effective value of every key, with secrets masked.
	Values() map[string]string
}
