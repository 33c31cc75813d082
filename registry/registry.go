// Package registry maps agent-type names to launch descriptors: the
// executable to run, how to tell it to speak ACP, and which host tool
// servers to register on new_session.
package registry

import (
	"fmt"
	"os/exec"
)

// LaunchShape distinguishes how an agent type is told to speak ACP.
type LaunchShape string

const (
	// ShapeFlag passes a flag such as --acp among the launch args.
	ShapeFlag LaunchShape = "flag"
	// ShapeSubcommand passes a leading subcommand such as "acp".
	ShapeSubcommand LaunchShape = "subcommand"
	// ShapeStandalone launches a dedicated adapter binary, distinct from
	// the underlying agent CLI.
	ShapeStandalone LaunchShape = "standalone"
)

// ToolServer names a built-in host tool server to register for this agent
// type on new_session (see the toolserver package).
type ToolServer struct {
	Name string
}

// LaunchDescriptor is one registry entry.
type LaunchDescriptor struct {
	// Executable is the binary to look up on PATH.
	Executable string
	// Args is the literal argv, already including whatever flag or
	// subcommand the agent needs to speak ACP (e.g. []string{"--acp"}).
	Args []string
	// Shape records how Args achieves ACP mode, for diagnostics only.
	Shape LaunchShape
	// AdapterHint, if non-empty, is the install instruction printed when
	// Executable is not found on PATH (e.g. an npm package name).
	AdapterHint string
	// ToolServers lists host tool servers to register for this agent type.
	ToolServers []ToolServer
}

// builtins is the compile-time table. Each launch shape in spec.md §4.3 is
// represented by at least one entry.
var builtins = map[string]LaunchDescriptor{
	"claude-code": {
		Executable:  "claude",
		Args:        []string{"--acp"},
		Shape:       ShapeFlag,
		AdapterHint: "npm install -g @anthropic-ai/claude-code",
		ToolServers: []ToolServer{{Name: "session-info"}},
	},
	"gemini": {
		Executable:  "gemini",
		Args:        []string{"--experimental-acp"},
		Shape:       ShapeFlag,
		AdapterHint: "npm install -g @google/gemini-cli",
		ToolServers: []ToolServer{{Name: "session-info"}},
	},
	"codex": {
		Executable:  "codex",
		Args:        []string{"acp"},
		Shape:       ShapeSubcommand,
		AdapterHint: "npm install -g @openai/codex",
		ToolServers: []ToolServer{{Name: "session-info"}},
	},
	"opencode-acp": {
		Executable:  "opencode-acp",
		Args:        []string{},
		Shape:       ShapeStandalone,
		AdapterHint: "npm install -g @opencode-ai/acp-adapter",
		ToolServers: []ToolServer{{Name: "session-info"}},
	},
}

// Registry resolves agent-type names to launch descriptors, built-in
// entries overridden by an optional overlay (see overlay.go).
type Registry struct {
	entries map[string]LaunchDescriptor
}

// New returns a registry seeded with the compile-time built-ins.
func New() *Registry {
	r := &Registry{entries: make(map[string]LaunchDescriptor, len(builtins))}
	for name, d := range builtins {
		r.entries[name] = d
	}
	return r
}

// Merge overlays additional or overriding entries on top of the current
// table; an overlay entry for an existing name replaces it outright.
func (r *Registry) Merge(overlay map[string]LaunchDescriptor) {
	for name, d := range overlay {
		r.entries[name] = d
	}
}

// ErrUnknownType is returned by Lookup for an unregistered agent type.
type ErrUnknownType struct {
	Type string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown agent type %q", e.Type)
}

// ErrExecutableMissing is returned by Lookup when the descriptor's
// executable cannot be found on PATH. AdapterHint, when non-empty,
// explains how to install it.
type ErrExecutableMissing struct {
	Type        string
	Executable  string
	AdapterHint string
}

func (e *ErrExecutableMissing) Error() string {
	if e.AdapterHint != "" {
		return fmt.Sprintf("agent type %q requires %q, not found on PATH; install with: %s", e.Type, e.Executable, e.AdapterHint)
	}
	return fmt.Sprintf("agent type %q requires %q, not found on PATH", e.Type, e.Executable)
}

// Lookup resolves name to a launch descriptor and verifies its executable
// is present on PATH. This check runs before spawning, per spec.md §4.3:
// a missing adapter binary must fail fast with a diagnostic naming the
// package to install, not surface as an opaque spawn failure.
func (r *Registry) Lookup(name string) (LaunchDescriptor, error) {
	d, ok := r.entries[name]
	if !ok {
		return LaunchDescriptor{}, &ErrUnknownType{Type: name}
	}
	if _, err := exec.LookPath(d.Executable); err != nil {
		return LaunchDescriptor{}, &ErrExecutableMissing{
			Type:        name,
			Executable:  d.Executable,
			AdapterHint: d.AdapterHint,
		}
	}
	return d, nil
}

// Names returns every registered agent-type name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
