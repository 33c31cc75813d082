package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agent-team/agent-team/discovery"
	"github.com/agent-team/agent-team/logx"
	"github.com/agent-team/agent-team/registry"
	"github.com/agent-team/agent-team/session"
	"github.com/agent-team/agent-team/supervisor"
)

var (
	serveName    string
	serveType    string
	serveOverlay string
)

// serveCmd is the hidden foreground supervisor entry point. discovery.Launch
// re-execs the binary into this subcommand, detached, inheriting the
// caller's working directory as cwd; users reach it only indirectly through
// `add`.
var serveCmd = &cobra.Command{
	Use:    "serve",
	Short:  "Run a single agent session's supervisor in the foreground",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveName == "" || serveType == "" {
			return fmt.Errorf("serve requires --name and --type")
		}

		reg := registry.New()
		if serveOverlay != "" {
			overlay, err := registry.LoadOverlay(serveOverlay)
			if err != nil {
				return err
			}
			reg.Merge(overlay)
		}
		descriptor, err := reg.Lookup(serveType)
		if err != nil {
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}

		socketPath := discovery.SocketPath(serveName)
		log := logx.New(serveName, serveType, os.Getpid())

		if err := discovery.WritePIDFile(serveName, os.Getpid()); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}

		handle := session.New(serveName, serveType, descriptor, cwd, socketPath, log)

		ctx := context.Background()
		if err := handle.Spawn(ctx); err != nil {
			return fmt.Errorf("spawn agent: %w", err)
		}

		ln, err := supervisor.Listen(socketPath)
		if err != nil {
			return fmt.Errorf("listen %s: %w", socketPath, err)
		}

		return supervisor.Run(ctx, ln, handle, log)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveName, "name", "", "session name")
	serveCmd.Flags().StringVar(&serveType, "type", "", "agent type")
	serveCmd.Flags().StringVar(&serveOverlay, "overlay", filepath.Join(os.Getenv("HOME"), ".agent-team", "agents.yaml"), "registry overlay path")
}
