// Package mcp provides an MCP (Model Context Protocol) server adapter for paperchat.
// It lets AI assistants run chat turns and call the paper tools directly.
package mcp

import "errors"

var (
	// ErrMissingChatService is returned when the chat service is not provided.
	ErrMissingChatService = errors.New("mcp: chat service is required")

	// ErrMissingToolRegistry is returned when the tool registry is not provided.
	ErrMissingToolRegistry = errors.New("mcp: tool registry is required")
)
