package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/discovery"
	"github.com/agent-team/agent-team/protocol"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <name>",
	Short: "Cancel an agent session's in-flight prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  bareRequest(protocol.ReqCancel),
}

var restartCmd = &cobra.Command{
	Use:   "restart <name>",
	Short: "Restart an agent session's child process",
	Args:  cobra.ExactArgs(1),
	RunE:  bareRequest(protocol.ReqRestart),
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown <name>",
	Short: "Gracefully shut down an agent session",
	Args:  cobra.ExactArgs(1),
	RunE:  bareRequest(protocol.ReqShutdown),
}

var setModeCmd = &cobra.Command{
	Use:   "set-mode <name> <mode>",
	Short: "Change an agent session's mode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ack(discovery.Request(args[0], protocol.SessionRequest{Kind: protocol.ReqSetMode, Mode: args[1]}))
	},
}

var setConfigCmd = &cobra.Command{
	Use:   "set-config <name> <key> <value>",
	Short: "Change one of an agent session's config options",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := protocol.SessionRequest{Kind: protocol.ReqSetConfig, Key: args[1], Value: args[2]}
		return ack(discovery.Request(args[0], req))
	},
}

func bareRequest(kind protocol.RequestKind) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return ack(discovery.Request(args[0], protocol.SessionRequest{Kind: kind}))
	}
}

func ack(resp protocol.SessionResponse, err error) error {
	if err != nil {
		return err
	}
	if !resp.Ok {
		return fmt.Errorf("%s: %s", resp.Error.Kind, resp.Error.Message)
	}
	fmt.Println("ok")
	return nil
}
