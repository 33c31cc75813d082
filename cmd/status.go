package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/discovery"
	"github.com/agent-team/agent-team/protocol"
)

var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Print an agent session's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := discovery.Request(args[0], protocol.SessionRequest{Kind: protocol.ReqGetStatus})
		if err != nil {
			return err
		}
		if !resp.Ok {
			return fmt.Errorf("%s: %s", resp.Error.Kind, resp.Error.Message)
		}
		fmt.Println(resp.Status.State)
		if resp.Status.Message != "" {
			fmt.Println(resp.Status.Message)
		}
		return nil
	},
}
