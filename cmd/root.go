// Package cmd implements the CLI commands for agent-team. CLI
// parsing/formatting is explicitly out of scope for the design this repo
// implements; these commands are thin wrappers around discovery/protocol,
// not a designed UX — grounded on the teacher's own minimal root command.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version info - set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "agent-team",
	Short: "agent-team - per-agent session supervisor",
	Long:  `Spawn, query, and control ACP agent sessions, one process per agent.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(outputCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(setModeCmd)
	rootCmd.AddCommand(setConfigCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolServerCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agent-team %s\n", Version)
		if Version != "dev" {
			fmt.Printf("  commit: %s\n", Commit)
			fmt.Printf("  built:  %s\n", Date)
		}
	},
}
