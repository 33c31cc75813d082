package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/discovery"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List live agent sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := discovery.List()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s\tpid=%d\t%s\n", s.Name, s.PID, s.SocketPath)
		}
		return nil
	},
}
