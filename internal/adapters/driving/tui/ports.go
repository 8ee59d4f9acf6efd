// Package tui provides an interactive terminal chat for paperchat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
type Ports struct {
	// Chat answers conversational turns.
	Chat driving.ChatService

	// Settings views and edits configuration.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Settings == nil {
		return ErrMissingSettingsService
	}
	return nil
}
