package cli

import (
	"github.com/spf13/cobra"

	"github.com/warraq-labs/warraq/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search
the corpus.

By default the server communicates over stdio using JSON-RPC, which is
what Claude Desktop and most MCP clients expect. Use --http to listen
on an address instead.

Examples:
  # Stdio mode (default, for Claude Desktop)
  warraq mcp

  # HTTP mode (for MCP Inspector, remote access)
  warraq mcp --http 127.0.0.1:8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "warraq": {
        "command": "/path/to/warraq",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve over HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Retrieval: retrievalService})
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		// Stdout stays clean in stdio mode; here it is ours.
		cmd.Printf("MCP server listening on http://%s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}
	return server.Run(cmd.Context())
}
