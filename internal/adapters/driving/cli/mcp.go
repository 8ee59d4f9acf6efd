package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes "ask", which runs a full turn, plus every registered
tool (fetch_papers, answer_question) one-to-one.

By default the server communicates over stdio using JSON-RPC. Use --port to
serve streamable HTTP instead, e.g. for MCP Inspector. HTTP binds to
localhost unless --host names another interface.

Examples:
  # Stdio mode (default)
  paperchat mcp serve

  # HTTP mode
  paperchat mcp serve --port 8080

  # HTTP on every interface
  paperchat mcp serve --port 8080 --host 0.0.0.0

Client configuration:
  {
    "mcpServers": {
      "paperchat": {
        "command": "/path/to/paperchat",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("host", "localhost", "HTTP bind host, used with --port")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return fmt.Errorf("getting host flag: %w", err)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	server, err := mcp.NewServer(&mcp.Ports{
		Chat:     rt.Chat,
		Tools:    rt.Tools,
		Settings: rt.SettingsService,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
