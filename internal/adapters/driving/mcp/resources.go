package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for paperchat resources.
	uriScheme = "paperchat://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "tools",
		Name:        "tools",
		Description: "Registered tools and their descriptions",
		MIMEType:    "application/json",
	}, s.handleToolsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "tools/{name}/schema",
		Name:        "tool-schema",
		Description: "JSON Schema for a tool's arguments",
		MIMEType:    "application/schema+json",
	}, s.handleToolSchemaResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "settings",
		Name:        "settings",
		Description: "Effective configuration with secrets masked",
		MIMEType:    "application/json",
	}, s.handleSettingsResource)
}

// handleToolsResource lists registry tools.
func (s *Server) handleToolsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type toolInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	tools := s.ports.Tools.List()
	infos := make([]toolInfo, len(tools))
	for i, tool := range tools {
		infos[i] = toolInfo{Name: tool.Name(), Description: tool.Description()}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling tools: %w", err)
	}

	return textResult(req.Params.URI, "application/json", string(data)), nil
}

// handleToolSchemaResource returns one tool's input schema.
func (s *Server) handleToolSchemaResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract name from URI: paperchat://tools/{name}/schema
	name := extractToolName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	tool, err := s.ports.Tools.Lookup(name)
	if errors.Is(err, domain.ErrUnknownTool) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up tool: %w", err)
	}

	return textResult(req.Params.URI, "application/schema+json", string(tool.InputSchema())), nil
}

// handleSettingsResource returns the effective settings.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Settings == nil {
		return textResult(req.Params.URI, "application/json", "{}"), nil
	}

	data, err := json.MarshalIndent(s.ports.Settings.Values(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling settings: %w", err)
	}

	return textResult(req.Params.URI, "application/json", string(data)), nil
}

func textResult(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeType,
			Text:     text,
		}},
	}
}

// extractToolName extracts the tool name from a URI like paperchat://tools/{name}/schema.
func extractToolName(uri string) string {
	const prefix = uriScheme + "tools/"
	const suffix = "/schema"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
