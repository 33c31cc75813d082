package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/discovery"
	"github.com/agent-team/agent-team/protocol"
)

var permissionAll bool

var approveCmd = &cobra.Command{
	Use:   "approve <name> [permission-id]",
	Short: "Approve a pending permission request",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendPermission(args, protocol.ReqApprove, protocol.ChoiceAllowOnce)
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny <name> [permission-id]",
	Short: "Deny a pending permission request",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendPermission(args, protocol.ReqDeny, protocol.ChoiceReject)
	},
}

func sendPermission(args []string, kind protocol.RequestKind, choice protocol.PermissionChoice) error {
	req := protocol.SessionRequest{Kind: kind, Choice: choice, All: permissionAll}
	if len(args) == 2 {
		req.PermissionID = &args[1]
	}
	resp, err := discovery.Request(args[0], req)
	if err != nil {
		return err
	}
	if !resp.Ok {
		return fmt.Errorf("%s: %s", resp.Error.Kind, resp.Error.Message)
	}
	fmt.Printf("affected %d pending permission(s)\n", resp.Affected)
	return nil
}

func init() {
	approveCmd.Flags().BoolVar(&permissionAll, "all", false, "resolve every pending permission")
	denyCmd.Flags().BoolVar(&permissionAll, "all", false, "resolve every pending permission")
}
