package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/discovery"
	"github.com/agent-team/agent-team/protocol"
)

var (
	outputLast      uint32
	outputAgentOnly bool
)

var outputCmd = &cobra.Command{
	Use:   "output <name>",
	Short: "Print an agent session's recent output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := protocol.SessionRequest{Kind: protocol.ReqGetOutput, AgentOnly: outputAgentOnly}
		if outputLast > 0 {
			req.Last = &outputLast
		}
		resp, err := discovery.Request(args[0], req)
		if err != nil {
			return err
		}
		if !resp.Ok {
			return fmt.Errorf("%s: %s", resp.Error.Kind, resp.Error.Message)
		}
		for _, e := range resp.Output {
			fmt.Printf("[%s] %s\n", e.Kind, e.Text)
		}
		return nil
	},
}

func init() {
	outputCmd.Flags().Uint32Var(&outputLast, "last", 0, "only the last N entries (0 = all)")
	outputCmd.Flags().BoolVar(&outputAgentOnly, "agent-only", false, "only agent message/thought entries")
}
