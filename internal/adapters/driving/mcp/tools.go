package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// askToolName is the full-turn tool. Registry tools may not reuse it.
const askToolName = "ask"

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Messages []domain.ChatMessage `json:"messages" jsonschema:"the conversation so far, oldest first; the last message must come from the user"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	ToolUsed  string   `json:"tool_used"`
	Rationale string   `json:"rationale"`
	TurnID    string   `json:"turn_id"`
	Route     string   `json:"route"`
}

// registerTools exposes every registry tool plus ask.
func (s *Server) registerTools() error {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        askToolName,
		Description: "Answer the last user message of a conversation, fetching papers from arXiv when asked to",
	}, s.handleAsk)

	for _, tool := range s.ports.Tools.List() {
		if tool.Name() == askToolName {
			return fmt.Errorf("tool name %q is reserved", askToolName)
		}
		s.server.AddTool(&mcp.Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		}, s.registryHandler(tool.Name()))
	}
	return nil
}

// handleAsk runs one full turn.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	result, trace, err := s.ports.Chat.RespondWithTrace(ctx, input.Messages)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:    result.Answer,
		Sources:   result.Sources,
		ToolUsed:  result.ToolUsed,
		Rationale: result.Rationale,
	}
	if output.Sources == nil {
		output.Sources = []string{}
	}
	if trace != nil {
		output.TurnID = trace.ID
		output.Route = string(trace.Route)
	}

	return nil, output, nil
}

// registryHandler forwards raw arguments to the named registry tool.
// Tool failures are reported in the result rather than as protocol errors.
func (s *Server) registryHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}

		out, err := s.ports.Tools.Invoke(ctx, name, args)
		if err != nil {
			return errorResult(err), nil
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling %s output: %w", name, err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
