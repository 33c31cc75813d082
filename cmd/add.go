package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/discovery"
)

var addCmd = &cobra.Command{
	Use:   "add <name> <agent-type>",
	Short: "Launch a new agent session in the background",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, agentType := args[0], args[1]
		pid, err := discovery.Launch(name, agentType, nil)
		if err != nil {
			return err
		}
		fmt.Printf("started %q (type %s, pid %d)\n", name, agentType, pid)
		return nil
	},
}
