package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/toolserver"
)

var toolServerSocket string

// toolServerCmd is the hidden MCP tool server entry point. The agent
// process launches it over stdio per the McpServerStdio entry the
// supervisor registers on new_session; no human ever types this command.
var toolServerCmd = &cobra.Command{
	Use:    "__tool-server",
	Short:  "Run the session-info MCP tool server over stdio",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if toolServerSocket == "" {
			return fmt.Errorf("__tool-server requires --socket")
		}
		srv := toolserver.New(toolServerSocket)
		return toolserver.Serve(context.Background(), srv)
	},
}

func init() {
	toolServerCmd.Flags().StringVar(&toolServerSocket, "socket", "", "control socket of the owning session")
}
