package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/adapters/driving/mcp"
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

The server exposes retrieval, the analysis pipeline and the consistency
engine as tools, and documents and consent logs as resources. By default it
communicates over stdio using JSON-RPC.

Use --port to start an HTTP server instead. It binds to loopback unless
--host says otherwise. The scheduler runs alongside the server when it is
enabled in the config.

Examples:
  # Stdio mode (default)
  aegis mcp serve

  # HTTP mode
  aegis mcp serve --port 8080

  # HTTP mode reachable from other hosts
  aegis mcp serve --port 8080 --host 0.0.0.0`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("host", "127.0.0.1", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return fmt.Errorf("getting host flag: %w", err)
	}

	ports := &mcp.Ports{
		Retrieval:    retrievalService,
		Orchestrator: orchestrator,
		Consistency:  consistencyService,
		Document:     documentService,
		Governor:     governor,
	}

	server, err := mcp.NewServer(ports, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	defer startScheduler(cmd.Context())()

	if port > 0 {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server %s listening on http://%s\n", server.Version(), addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
