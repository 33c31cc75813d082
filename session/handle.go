// Package session implements the Agent Handle: the owner of one ACP child
// process and its connection. One dedicated goroutine per handle — the
// session thread — issues every blocking ACP call except the long-running
// prompt turn, which it hands to a background goroutine of its own;
// everything else reaches the session thread through the command channel
// below, or
// through the three independently-mutexed shared slots (status, output
// buffer, pending permissions) that live in agentstate/ring and are safe
// to read directly without going through the session thread at all.
//
// Grounded on acp/session.go's AgentSession (spawn, Initialize,
// StartSession, Prompt, Close), generalized from its synchronous
// call-and-block shape to the background-task protocol a short-lived CLI
// client needs: Prompt returns as soon as the turn has been started on its
// background goroutine, not when it finishes.
package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	acpsdk "github.com/coder/acp-go-sdk"
	"go.uber.org/zap"

	"github.com/agent-team/agent-team/acpadapter"
	"github.com/agent-team/agent-team/agentstate"
	"github.com/agent-team/agent-team/registry"
	"github.com/agent-team/agent-team/ring"
)

// clientName/clientVersion identify this host to the agent at initialize.
const (
	clientName    = "agent-team"
	clientVersion = "0.1.0"
)

// shutdownGrace is how long Shutdown waits after SIGTERM before SIGKILL,
// per spec.md §5's child-process teardown.
const shutdownGrace = 3 * time.Second

// command is the session thread's inbox: every operation that must run on
// the goroutine owning the ACP connection is represented as one of these,
// submitted over cmdCh and answered over its own reply channel.
type command struct {
	kind    commandKind
	ctx     context.Context
	text    string
	attach  []string
	mode    string
	key     string
	value   string
	choice  agentstate.PermissionOptionKind
	permID  string
	all     bool
	resultN *int
	reply   chan error
}

type commandKind int

const (
	cmdSpawn commandKind = iota
	cmdPrompt
	cmdCancel
	cmdApprove
	cmdSetMode
	cmdSetConfig
	cmdRestart
	cmdShutdown
)

// Info is the static identity of a session, answering GetInfo.
type Info struct {
	Name      string
	Type      string
	PID       int
	StartedAt time.Time
	AgentName string
	AgentVer  string
	SessionID string
	Mode      string
	Config    map[string]string
}

// Handle is one Agent Handle: spec.md §3's AgentHandle realized as a Go
// value plus a background goroutine. Every field below this comment block
// except Status/Buffer/Permissions is written only by the session thread
// (run, in dispatch.go); the prompt-turn goroutine it starts reads conn,
// sessionID and adapter, and everything else reaches them by sending a
// command and waiting on its reply channel.
type Handle struct {
	name       string
	agentType  string
	startedAt  time.Time
	descriptor registry.LaunchDescriptor
	cwd        string
	socketPath string

	Status      *agentstate.StatusSlot
	Buffer      *ring.OutputRingBuffer
	Permissions *agentstate.PermissionQueue
	Events      chan ring.OutputEntry

	log *zap.Logger

	cmdCh  chan command
	doneCh chan struct{}

	conn      *acpsdk.ClientSideConnection
	cmd       *exec.Cmd
	adapter   *acpadapter.Adapter
	sessionID acpsdk.SessionId
	agentInfo acpsdk.Implementation
	mode      string
	config    map[string]string
}

// New constructs a handle and starts its session thread. The child process
// is not spawned until Spawn is called. name is the session's identifier
// under the runtime directory; socketPath is recorded so the host tool
// server can dial back into this session's own control socket.
func New(name, agentType string, descriptor registry.LaunchDescriptor, cwd, socketPath string, log *zap.Logger) *Handle {
	h := &Handle{
		name:       name,
		agentType:  agentType,
		startedAt:  time.Now(),
		descriptor: descriptor,
		cwd:        cwd,
		socketPath: socketPath,

		Status:      agentstate.NewStatusSlot(),
		Buffer:      ring.NewOutputRingBuffer(ring.DefaultCapacity),
		Permissions: agentstate.NewPermissionQueue(),
		// Events is allocated once here and handed to every Adapter this
		// handle ever builds (including across Restart), so the supervisor's
		// stdout-bridge goroutine — started once, at Run, against this same
		// channel — never gets orphaned on a dead per-spawn channel.
		Events: make(chan ring.OutputEntry, 256),

		log: log,

		cmdCh:  make(chan command),
		doneCh: make(chan struct{}),

		config: make(map[string]string),
	}
	go h.run()
	return h
}

// Name, Type and SocketPath are immutable, set once at construction.
func (h *Handle) Name() string       { return h.name }
func (h *Handle) Type() string       { return h.agentType }
func (h *Handle) SocketPath() string { return h.socketPath }

// Info returns a snapshot of the handle's identity. The fields it reads
// beyond Status are only ever written by the session thread itself before
// it responds to the Spawn/Restart command that set them, so by the time a
// caller can observe a successful Spawn/Restart reply, they are stable
// until the next Restart.
func (h *Handle) Info() Info {
	cfg := make(map[string]string, len(h.config))
	for k, v := range h.config {
		cfg[k] = v
	}
	return Info{
		Name:      h.name,
		Type:      h.agentType,
		PID:       h.pid(),
		StartedAt: h.startedAt,
		AgentName: h.agentInfo.Name,
		AgentVer:  h.agentInfo.Version,
		SessionID: string(h.sessionID),
		Mode:      h.mode,
		Config:    cfg,
	}
}

func (h *Handle) pid() int {
	if h.cmd != nil && h.cmd.Process != nil {
		return h.cmd.Process.Pid
	}
	return 0
}

// Spawn launches the child process and performs the ACP handshake on the
// session thread, and blocks until that completes.
func (h *Handle) Spawn(ctx context.Context) error {
	return h.submit(ctx, cmdSpawn)
}

func (h *Handle) submit(ctx context.Context, kind commandKind, opts ...func(*command)) error {
	cmd := command{kind: kind, ctx: ctx, reply: make(chan error, 1)}
	for _, opt := range opts {
		opt(&cmd)
	}
	select {
	case h.cmdCh <- cmd:
	case <-h.doneCh:
		return fmt.Errorf("session %q is shut down", h.name)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-h.doneCh:
		return fmt.Errorf("session %q is shut down", h.name)
	}
}

// doSpawn runs on the session thread.
func (h *Handle) doSpawn(ctx context.Context) error {
	h.Status.Force(agentstate.Status{State: agentstate.Starting})

	cmd := exec.Command(h.descriptor.Executable, h.descriptor.Args...)
	cmd.Env = os.Environ()
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		h.Status.Force(agentstate.Status{State: agentstate.Error, Message: err.Error()})
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		h.Status.Force(agentstate.Status{State: agentstate.Error, Message: err.Error()})
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		h.Status.Force(agentstate.Status{State: agentstate.Error, Message: err.Error()})
		return fmt.Errorf("start agent %q: %w", h.descriptor.Executable, err)
	}

	adapter := acpadapter.New(h.Buffer, h.Status, h.Permissions, acpadapter.AllowAll, h.Events, h.log)
	conn := acpsdk.NewClientSideConnection(adapter, stdin, stdout)

	initResp, err := conn.Initialize(ctx, acpsdk.InitializeRequest{
		ProtocolVersion: acpsdk.ProtocolVersionNumber,
		ClientInfo: &acpsdk.Implementation{
			Name:    clientName,
			Version: clientVersion,
		},
	})
	if err != nil {
		_ = killProcess(cmd)
		h.Status.Force(agentstate.Status{State: agentstate.Error, Message: err.Error()})
		return fmt.Errorf("initialize: %w", err)
	}
	if initResp.AgentInfo != nil {
		h.agentInfo = *initResp.AgentInfo
	}

	sessResp, err := conn.NewSession(ctx, acpsdk.NewSessionRequest{
		Cwd:        h.cwd,
		McpServers: h.mcpServers(),
	})
	if err != nil {
		_ = killProcess(cmd)
		h.Status.Force(agentstate.Status{State: agentstate.Error, Message: err.Error()})
		return fmt.Errorf("new session: %w", err)
	}

	h.conn = conn
	h.cmd = cmd
	h.adapter = adapter
	h.sessionID = sessResp.SessionId

	if err := h.Status.Transition(agentstate.Status{State: agentstate.Idle}); err != nil {
		h.log.Error("unexpected transition failure after spawn", zap.Error(err))
	}
	return nil
}

// mcpServers builds the McpServerStdio entries the descriptor's tool
// servers require. Each entry tells the agent to launch this same binary's
// hidden tool-server subcommand, pointed at this session's own control
// socket, so the agent can introspect its own status without the host
// granting it filesystem or terminal capability (SPEC_FULL.md §4.8).
func (h *Handle) mcpServers() []acpsdk.McpServer {
	if len(h.descriptor.ToolServers) == 0 {
		return []acpsdk.McpServer{}
	}
	self, err := os.Executable()
	if err != nil {
		self = "agent-team"
	}
	out := make([]acpsdk.McpServer, 0, len(h.descriptor.ToolServers))
	for _, ts := range h.descriptor.ToolServers {
		out = append(out, acpsdk.McpServer{
			Stdio: &acpsdk.McpServerStdio{
				Name:    ts.Name,
				Command: self,
				Args:    []string{"__tool-server", "--socket", h.socketPath},
			},
		})
	}
	return out
}

func killProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	return nil
}
