// Package acpadapter implements the inbound half of ACP: the callback
// object the ACP connection drives with session notifications and
// permission requests. It never holds the Agent Handle itself, only
// shared references to the ring buffer, the status slot, and the
// permission queue, so it cannot alias the supervisor's own mutation
// paths (spec.md §4.4).
package acpadapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	acpsdk "github.com/coder/acp-go-sdk"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agent-team/agent-team/agentstate"
	"github.com/agent-team/agent-team/ring"
)

// ApprovalPolicy decides whether a permission request can be answered
// synchronously. A nil policy (or one that returns ok=false) always
// queues the request for the client to approve or deny explicitly.
type ApprovalPolicy func(req acpsdk.RequestPermissionRequest) (choice agentstate.PermissionOptionKind, ok bool)

// AllowAll is an ApprovalPolicy that accepts the first AllowOnce/AllowAlways
// option offered, mirroring the teacher's unconditional auto-approve.
func AllowAll(req acpsdk.RequestPermissionRequest) (agentstate.PermissionOptionKind, bool) {
	for _, opt := range req.Options {
		switch opt.Kind {
		case acpsdk.PermissionOptionKindAllowOnce:
			return agentstate.AllowOnce, true
		case acpsdk.PermissionOptionKindAllowAlways:
			return agentstate.AllowAlways, true
		}
	}
	return "", false
}

// fragmentKind distinguishes which streaming text the adapter is currently
// assembling, so a chunk of one kind never gets concatenated onto a
// different in-flight kind.
type fragmentKind int

const (
	fragmentNone fragmentKind = iota
	fragmentMessage
	fragmentThought
)

// Adapter implements acpsdk.Client. One Adapter is created per spawn (or
// re-spawn, on Restart) of the agent's ACP connection.
type Adapter struct {
	Buffer      *ring.OutputRingBuffer
	Status      *agentstate.StatusSlot
	Permissions *agentstate.PermissionQueue
	Policy      ApprovalPolicy
	Log         *zap.Logger

	// Events receives a copy of every entry this Adapter appends to
	// Buffer, for the stdout bridge (spec.md §2: "streaming agent output
	// never traverses the control socket ... it is written to the session's
	// standard output"). Entries the session handle appends to Buffer
	// directly (user prompts, stop reasons, prompt errors, restarts) are not
	// sent here. Sends are non-blocking; a slow stdout consumer drops
	// events rather than stalling the callback.
	Events chan ring.OutputEntry

	mu      sync.Mutex
	kind    fragmentKind
	pending strings.Builder
}

var _ acpsdk.Client = (*Adapter)(nil)

// New constructs an Adapter sharing the given state slots. events is owned
// by the session.Handle that outlives any one Adapter: a Restart builds a
// fresh Adapter for the new child process but keeps handing it the same
// events channel, so the supervisor's one stdout-bridge goroutine (started
// once, at Run) keeps reading live output across restarts instead of being
// orphaned on a channel the old Adapter alone knew about.
func New(buf *ring.OutputRingBuffer, status *agentstate.StatusSlot, perms *agentstate.PermissionQueue, policy ApprovalPolicy, events chan ring.OutputEntry, log *zap.Logger) *Adapter {
	return &Adapter{
		Buffer:      buf,
		Status:      status,
		Permissions: perms,
		Policy:      policy,
		Log:         log,
		Events:      events,
	}
}

func (a *Adapter) append(kind ring.OutputType, text string) {
	entry := a.Buffer.Append(kind, text)
	select {
	case a.Events <- entry:
	default:
		if a.Log != nil {
			a.Log.Warn("dropping output event, stdout bridge is behind")
		}
	}
}

// flush closes out any in-progress fragment, appending its accumulated
// text as a finished OutputEntry. Called when a new fragment kind begins,
// and by FlushOnAbort when the session leaves Running without a natural
// terminal fragment (spec.md §9's open question: partial text is kept,
// never discarded).
func (a *Adapter) flush() {
	if a.kind == fragmentNone || a.pending.Len() == 0 {
		a.kind = fragmentNone
		a.pending.Reset()
		return
	}
	text := a.pending.String()
	a.pending.Reset()
	k := a.kind
	a.kind = fragmentNone

	switch k {
	case fragmentMessage:
		a.append(ring.AgentMessage{}, text)
	case fragmentThought:
		a.append(ring.AgentThought{}, text)
	}
}

func (a *Adapter) accumulate(k fragmentKind, chunk string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.kind != fragmentNone && a.kind != k {
		a.flush()
	}
	a.kind = k
	a.pending.WriteString(chunk)
}

// FlushOnAbort finalizes any in-flight streaming fragment. The session
// handle calls this each time a prompt turn returns, whether it stopped
// cleanly, was cancelled, or failed, so the turn's last fragment always
// reaches the buffer.
func (a *Adapter) FlushOnAbort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flush()
}

// SessionUpdate handles one inbound ACP session notification.
func (a *Adapter) SessionUpdate(ctx context.Context, params acpsdk.SessionNotification) error {
	u := params.Update

	switch {
	case u.AgentMessageChunk != nil:
		if u.AgentMessageChunk.Content.Text != nil {
			a.accumulate(fragmentMessage, u.AgentMessageChunk.Content.Text.Text)
		}

	case u.AgentThoughtChunk != nil:
		if u.AgentThoughtChunk.Content.Text != nil {
			a.accumulate(fragmentThought, u.AgentThoughtChunk.Content.Text.Text)
		}

	case u.ToolCall != nil:
		a.mu.Lock()
		a.flush()
		a.mu.Unlock()
		a.append(ring.ToolCall{Name: u.ToolCall.Title, Status: string(u.ToolCall.Status)}, u.ToolCall.Title)

	case u.ToolCallUpdate != nil:
		status := ""
		if u.ToolCallUpdate.Status != nil {
			status = string(*u.ToolCallUpdate.Status)
		}
		text := extractToolCallText(u.ToolCallUpdate.Content)
		a.append(ring.ToolCallUpdate{Name: string(u.ToolCallUpdate.ToolCallId), Status: status}, text)

	case u.Plan != nil:
		a.append(ring.Plan{}, "")

	default:
		if a.Log != nil {
			a.Log.Debug("ignoring unrecognized session update kind")
		}
	}

	return nil
}

// RequestPermission implements the permission policy from spec.md §4.4:
// try the synchronous policy first, else enqueue and block on a one-shot
// channel until a client resolves it or the session tears the queue down.
func (a *Adapter) RequestPermission(ctx context.Context, params acpsdk.RequestPermissionRequest) (acpsdk.RequestPermissionResponse, error) {
	if a.Policy != nil {
		if choice, ok := a.Policy(params); ok {
			if opt, found := findOption(params.Options, choice); found {
				return selectedResponse(opt.OptionId), nil
			}
		}
	}

	id := uuid.NewString()
	options := make([]agentstate.PermissionOption, 0, len(params.Options))
	for _, opt := range params.Options {
		options = append(options, agentstate.PermissionOption{
			ID:    string(opt.OptionId),
			Label: opt.Name,
			Kind:  agentstate.PermissionOptionKind(optionKindString(opt.Kind)),
		})
	}

	pending := &agentstate.PendingPermission{
		ID:        id,
		Options:   options,
		Responder: make(chan agentstate.PermissionOptionKind, 1),
	}
	a.Permissions.Enqueue(pending)
	a.append(ring.PermissionRequest{ID: id}, promptSummary(params))

	cur := a.Status.Get()
	_ = a.Status.Transition(agentstate.Status{State: agentstate.WaitingPermission, PromptID: cur.PromptID, PermissionID: id})

	select {
	case choice, ok := <-pending.Responder:
		if !ok {
			return acpsdk.RequestPermissionResponse{
				Outcome: acpsdk.RequestPermissionOutcome{Cancelled: &acpsdk.RequestPermissionOutcomeCancelled{}},
			}, nil
		}
		if opt, found := findOption(params.Options, choice); found {
			return selectedResponse(opt.OptionId), nil
		}
		return acpsdk.RequestPermissionResponse{
			Outcome: acpsdk.RequestPermissionOutcome{Cancelled: &acpsdk.RequestPermissionOutcomeCancelled{}},
		}, nil
	case <-ctx.Done():
		return acpsdk.RequestPermissionResponse{
			Outcome: acpsdk.RequestPermissionOutcome{Cancelled: &acpsdk.RequestPermissionOutcomeCancelled{}},
		}, ctx.Err()
	}
}

func selectedResponse(id acpsdk.PermissionOptionId) acpsdk.RequestPermissionResponse {
	return acpsdk.RequestPermissionResponse{
		Outcome: acpsdk.RequestPermissionOutcome{
			Selected: &acpsdk.RequestPermissionOutcomeSelected{OptionId: id},
		},
	}
}

func findOption(options []acpsdk.PermissionOption, choice agentstate.PermissionOptionKind) (acpsdk.PermissionOption, bool) {
	for _, opt := range options {
		if optionKindString(opt.Kind) == string(choice) {
			return opt, true
		}
	}
	return acpsdk.PermissionOption{}, false
}

func optionKindString(k acpsdk.PermissionOptionKind) string {
	switch k {
	case acpsdk.PermissionOptionKindAllowOnce:
		return string(agentstate.AllowOnce)
	case acpsdk.PermissionOptionKindAllowAlways:
		return string(agentstate.AllowAlways)
	case acpsdk.PermissionOptionKindRejectOnce:
		return string(agentstate.Reject)
	case acpsdk.PermissionOptionKindRejectAlways:
		return string(agentstate.RejectAlways)
	default:
		return string(k)
	}
}

func promptSummary(req acpsdk.RequestPermissionRequest) string {
	if req.ToolCall.Title != nil && *req.ToolCall.Title != "" {
		return *req.ToolCall.Title
	}
	return "permission requested"
}

func extractToolCallText(content []acpsdk.ToolCallContent) string {
	var sb strings.Builder
	for _, c := range content {
		if c.Content != nil && c.Content.Content.Text != nil {
			sb.WriteString(c.Content.Content.Text.Text)
		}
	}
	return sb.String()
}

// --- Filesystem and terminal callbacks: not supported. ---
//
// The host advertises neither Fs nor Terminal capability at initialize
// (spec.md §1 Non-goals), so a well-behaved agent should never invoke
// these. They exist only to satisfy the acpsdk.Client interface; if one is
// ever called it means a capability mismatch slipped through, which is
// logged at error level.

func (a *Adapter) notSupported(method string) error {
	if a.Log != nil {
		a.Log.Error("agent invoked an unsupported host capability", zap.String("method", method))
	}
	return fmt.Errorf("%s: not supported by this host", method)
}

func (a *Adapter) ReadTextFile(ctx context.Context, params acpsdk.ReadTextFileRequest) (acpsdk.ReadTextFileResponse, error) {
	return acpsdk.ReadTextFileResponse{}, a.notSupported("fs/read_text_file")
}

func (a *Adapter) WriteTextFile(ctx context.Context, params acpsdk.WriteTextFileRequest) (acpsdk.WriteTextFileResponse, error) {
	return acpsdk.WriteTextFileResponse{}, a.notSupported("fs/write_text_file")
}

func (a *Adapter) CreateTerminal(ctx context.Context, params acpsdk.CreateTerminalRequest) (acpsdk.CreateTerminalResponse, error) {
	return acpsdk.CreateTerminalResponse{}, a.notSupported("terminal/create")
}

func (a *Adapter) TerminalOutput(ctx context.Context, params acpsdk.TerminalOutputRequest) (acpsdk.TerminalOutputResponse, error) {
	return acpsdk.TerminalOutputResponse{}, a.notSupported("terminal/output")
}

func (a *Adapter) WaitForTerminalExit(ctx context.Context, params acpsdk.WaitForTerminalExitRequest) (acpsdk.WaitForTerminalExitResponse, error) {
	return acpsdk.WaitForTerminalExitResponse{}, a.notSupported("terminal/wait_for_exit")
}

func (a *Adapter) KillTerminalCommand(ctx context.Context, params acpsdk.KillTerminalCommandRequest) (acpsdk.KillTerminalCommandResponse, error) {
	return acpsdk.KillTerminalCommandResponse{}, a.notSupported("terminal/kill")
}

func (a *Adapter) ReleaseTerminal(ctx context.Context, params acpsdk.ReleaseTerminalRequest) (acpsdk.ReleaseTerminalResponse, error) {
	return acpsdk.ReleaseTerminalResponse{}, a.notSupported("terminal/release")
}
