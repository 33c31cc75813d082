// Package supervisor implements the Session Server: the accept loop that
// binds one session's control socket, dispatches framed requests against
// its Agent Handle, and renders a human-readable stream of the same output
// to stdout.
//
// Grounded on the ACP-multiplex reference's runProxy accept-loop and
// signal-handling shape, and on kandev's server/api dispatch-table-by-
// request-kind shape, generalized from HTTP routes to a flat switch over
// protocol.RequestKind.
package supervisor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/agent-team/agent-team/agentstate"
	"github.com/agent-team/agent-team/protocol"
	"github.com/agent-team/agent-team/ring"
	"github.com/agent-team/agent-team/session"
)

// Server dispatches control-protocol requests against one session handle.
type Server struct {
	handle *session.Handle
	log    *zap.Logger
}

// NewServer builds a dispatcher for handle.
func NewServer(handle *session.Handle, log *zap.Logger) *Server {
	return &Server{handle: handle, log: log}
}

// Dispatch answers one request. It never panics on a malformed request;
// errors are translated to the protocol's closed ErrorKind taxonomy.
func (s *Server) Dispatch(ctx context.Context, req protocol.SessionRequest) protocol.SessionResponse {
	switch req.Kind {
	case protocol.ReqGetStatus:
		return s.getStatus()
	case protocol.ReqGetInfo:
		return s.getInfo()
	case protocol.ReqGetOutput:
		return s.getOutput(req)
	case protocol.ReqPrompt:
		return s.prompt(ctx, req)
	case protocol.ReqCancel:
		return s.cancel(ctx)
	case protocol.ReqApprove:
		return s.approve(ctx, req, agentstate.AllowOnce)
	case protocol.ReqDeny:
		return s.approve(ctx, req, agentstate.Reject)
	case protocol.ReqSetMode:
		return s.setMode(ctx, req)
	case protocol.ReqSetConfig:
		return s.setConfig(ctx, req)
	case protocol.ReqRestart:
		return s.restart(ctx)
	case protocol.ReqShutdown:
		return s.shutdown(ctx)
	default:
		return protocol.Err(req.Kind, protocol.ErrBadRequest, fmt.Sprintf("unknown request kind %q", req.Kind))
	}
}

func (s *Server) getStatus() protocol.SessionResponse {
	st := s.handle.Status.Get()
	resp := protocol.Ack(protocol.ReqGetStatus)
	wire := statusWire(st)
	resp.Status = &wire
	return resp
}

func (s *Server) getInfo() protocol.SessionResponse {
	info := s.handle.Info()
	resp := protocol.Ack(protocol.ReqGetInfo)
	wire := protocol.InfoWire{
		Name:      info.Name,
		Type:      info.Type,
		PID:       info.PID,
		StartedAt: info.StartedAt.Format(timeLayout),
		AgentName: info.AgentName,
		AgentVer:  info.AgentVer,
		SessionID: info.SessionID,
		Mode:      info.Mode,
		Config:    info.Config,
	}
	resp.Info = &wire
	return resp
}

func (s *Server) getOutput(req protocol.SessionRequest) protocol.SessionResponse {
	n := -1
	if req.Last != nil {
		n = int(*req.Last)
	}
	entries := s.handle.Buffer.TailFiltered(n, req.AgentOnly)
	resp := protocol.Ack(protocol.ReqGetOutput)
	resp.Output = make([]protocol.OutputEntryWire, 0, len(entries))
	for _, e := range entries {
		resp.Output = append(resp.Output, outputEntryWire(e))
	}
	return resp
}

func (s *Server) prompt(ctx context.Context, req protocol.SessionRequest) protocol.SessionResponse {
	if req.Text == "" {
		return protocol.Err(protocol.ReqPrompt, protocol.ErrBadRequest, "prompt text must not be empty")
	}
	if err := s.handle.Prompt(ctx, req.Text, req.Attachments); err != nil {
		return promptError(err)
	}
	return protocol.Ack(protocol.ReqPrompt)
}

func (s *Server) cancel(ctx context.Context) protocol.SessionResponse {
	if err := s.handle.Cancel(ctx); err != nil {
		return protocol.Err(protocol.ReqCancel, protocol.ErrNotReady, err.Error())
	}
	return protocol.Ack(protocol.ReqCancel)
}

func (s *Server) approve(ctx context.Context, req protocol.SessionRequest, fallback agentstate.PermissionOptionKind) protocol.SessionResponse {
	kind := protocol.ReqApprove
	if fallback == agentstate.Reject {
		kind = protocol.ReqDeny
	}
	choice := wireChoice(req.Choice, fallback)
	id := ""
	if req.PermissionID != nil {
		id = *req.PermissionID
	}
	if !req.All && id == "" {
		return protocol.Err(kind, protocol.ErrBadRequest, "permission_id or all must be set")
	}
	n, err := s.handle.Approve(ctx, id, req.All, choice)
	if err != nil {
		return protocol.Err(kind, protocol.ErrNotFound, err.Error())
	}
	resp := protocol.Ack(kind)
	resp.Affected = n
	return resp
}

func (s *Server) setMode(ctx context.Context, req protocol.SessionRequest) protocol.SessionResponse {
	if req.Mode == "" {
		return protocol.Err(protocol.ReqSetMode, protocol.ErrBadRequest, "mode must not be empty")
	}
	if err := s.handle.SetMode(ctx, req.Mode); err != nil {
		return protocol.Err(protocol.ReqSetMode, protocol.ErrAgentError, err.Error())
	}
	return protocol.Ack(protocol.ReqSetMode)
}

func (s *Server) setConfig(ctx context.Context, req protocol.SessionRequest) protocol.SessionResponse {
	if req.Key == "" {
		return protocol.Err(protocol.ReqSetConfig, protocol.ErrBadRequest, "key must not be empty")
	}
	if err := s.handle.SetConfig(ctx, req.Key, req.Value); err != nil {
		return protocol.Err(protocol.ReqSetConfig, protocol.ErrAgentError, err.Error())
	}
	return protocol.Ack(protocol.ReqSetConfig)
}

func (s *Server) restart(ctx context.Context) protocol.SessionResponse {
	if err := s.handle.Restart(ctx); err != nil {
		return protocol.Err(protocol.ReqRestart, protocol.ErrInternal, err.Error())
	}
	return protocol.Ack(protocol.ReqRestart)
}

func (s *Server) shutdown(ctx context.Context) protocol.SessionResponse {
	if err := s.handle.Shutdown(ctx); err != nil {
		return protocol.Err(protocol.ReqShutdown, protocol.ErrInternal, err.Error())
	}
	return protocol.Ack(protocol.ReqShutdown)
}

// promptError maps a rejected Prompt to the protocol's closed ErrorKind
// taxonomy. A *session.NotIdleError carries the exact state that rejected
// the call; anything else (e.g. ctx cancellation, the shut-down guard in
// submit) falls back to ErrInternal rather than guessing.
func promptError(err error) protocol.SessionResponse {
	var notIdle *session.NotIdleError
	if errors.As(err, &notIdle) {
		return protocol.Err(protocol.ReqPrompt, promptErrorKind(notIdle.State), err.Error())
	}
	return protocol.Err(protocol.ReqPrompt, protocol.ErrInternal, err.Error())
}

// promptErrorKind decides which bucket a non-Idle state falls into: Starting
// means new_session hasn't succeeded yet (NoSession), ShuttingDown/Terminated
// means the session existed and is gone or going (NotReady), Error reflects
// the agent itself failing (AgentError), and Running/WaitingPermission/
// Cancelling all mean a turn is already in flight (Busy).
func promptErrorKind(state agentstate.State) protocol.ErrorKind {
	switch state {
	case agentstate.Starting:
		return protocol.ErrNoSession
	case agentstate.ShuttingDown, agentstate.Terminated:
		return protocol.ErrNotReady
	case agentstate.Error:
		return protocol.ErrAgentError
	default:
		return protocol.ErrBusy
	}
}

func wireChoice(c protocol.PermissionChoice, fallback agentstate.PermissionOptionKind) agentstate.PermissionOptionKind {
	switch c {
	case protocol.ChoiceAllowOnce:
		return agentstate.AllowOnce
	case protocol.ChoiceAllowAlways:
		return agentstate.AllowAlways
	case protocol.ChoiceReject:
		return agentstate.Reject
	case protocol.ChoiceRejectAlway:
		return agentstate.RejectAlways
	default:
		return fallback
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func statusWire(st agentstate.Status) protocol.StatusWire {
	wire := protocol.StatusWire{State: st.State.String(), Message: st.Message}
	if st.PromptID != "" {
		wire.PromptID = &st.PromptID
	}
	if st.PermissionID != "" {
		wire.PermissionID = &st.PermissionID
	}
	return wire
}

func outputEntryWire(e ring.OutputEntry) protocol.OutputEntryWire {
	wire := protocol.OutputEntryWire{
		Sequence:  e.Sequence,
		Kind:      e.Kind.Kind(),
		Text:      e.Text,
		Timestamp: e.Timestamp.Format(timeLayout),
	}
	switch k := e.Kind.(type) {
	case ring.ToolCall:
		wire.ToolName, wire.ToolStatus = k.Name, k.Status
	case ring.ToolCallUpdate:
		wire.ToolName, wire.ToolStatus = k.Name, k.Status
	case ring.PermissionRequest:
		wire.PermissionID = k.ID
	}
	return wire
}
