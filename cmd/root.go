package cmd

import "github.com/spf13/cobra"

var (
	rootCmd = &cobra.Command{
		Use:   "mcp-core",
		Short: "Shared server infrastructure for MCP and web servers",
		Long:  `mcp-core provides token authentication, environment-derived configuration and a session-multiplexing SSE transport for MCP HTTP servers`,
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
