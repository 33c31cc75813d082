package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/discovery"
)

var askCmd = &cobra.Command{
	Use:   "ask <name> <prompt...>",
	Short: "Send a prompt and wait for the agent's reply",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		text := joinArgs(args[1:])

		entries, err := discovery.Ask(context.Background(), name, text, nil)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Println(e.Text)
		}
		return nil
	},
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
