package mcp

import (
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Chat answers full conversational turns.
	Chat driving.ChatService

	// Tools holds the tools exposed one-to-one as MCP tools.
	Tools driving.ToolRegistry

	// Settings backs the settings resource. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Tools == nil {
		return ErrMissingToolRegistry
	}
	return nil
}
