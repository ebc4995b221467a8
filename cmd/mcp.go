package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/vibecoding/mcp-server/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing the
get_context and search_context tools for AI agents like Claude Code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := buildServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "vibemcp MCP server started on stdio (indexed chunks=%d)\n", svcs.store.Count())

		srv := mcpserver.NewServer(svcs.retriever, svcs.store)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
