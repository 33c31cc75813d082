package supervisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agent-team/agent-team/agentstate"
	"github.com/agent-team/agent-team/protocol"
	"github.com/agent-team/agent-team/registry"
	"github.com/agent-team/agent-team/ring"
	"github.com/agent-team/agent-team/session"
)

func newTestServer(t *testing.T) (*Server, *session.Handle) {
	t.Helper()
	h := session.New("dispatch-test", "claude-code", registry.LaunchDescriptor{}, t.TempDir(), "/tmp/dispatch-test.sock", zap.NewNop())
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return NewServer(h, zap.NewNop()), h
}

func TestDispatchGetStatusReflectsHandle(t *testing.T) {
	srv, h := newTestServer(t)
	h.Status.Force(agentstate.Status{State: agentstate.Running, PromptID: "p-1"})

	resp := srv.Dispatch(context.Background(), protocol.SessionRequest{Kind: protocol.ReqGetStatus})
	require.True(t, resp.Ok)
	require.NotNil(t, resp.Status)
	require.Equal(t, "running", resp.Status.State)
	require.NotNil(t, resp.Status.PromptID)
	require.Equal(t, "p-1", *resp.Status.PromptID)
}

func TestDispatchGetOutputHonorsLastAndAgentOnly(t *testing.T) {
	srv, h := newTestServer(t)
	h.Buffer.Append(ring.UserPrompt{}, "hi")
	h.Buffer.Append(ring.AgentMessage{}, "hello")
	h.Buffer.Append(ring.Info{}, "idle")

	last := uint32(10)
	resp := srv.Dispatch(context.Background(), protocol.SessionRequest{
		Kind:      protocol.ReqGetOutput,
		Last:      &last,
		AgentOnly: true,
	})
	require.True(t, resp.Ok)
	require.Len(t, resp.Output, 1)
	require.Equal(t, "hello", resp.Output[0].Text)
}

func TestDispatchPromptRejectsEmptyText(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := srv.Dispatch(context.Background(), protocol.SessionRequest{Kind: protocol.ReqPrompt, Text: ""})
	require.False(t, resp.Ok)
	require.Equal(t, protocol.ErrBadRequest, resp.Error.Kind)
}

func TestDispatchPromptDistinguishesRejectionReasons(t *testing.T) {
	srv, h := newTestServer(t)

	// A freshly constructed handle starts in Starting: new_session hasn't
	// run yet, so this is NoSession rather than a generic Busy.
	resp := srv.Dispatch(context.Background(), protocol.SessionRequest{Kind: protocol.ReqPrompt, Text: "hi"})
	require.False(t, resp.Ok)
	require.Equal(t, protocol.ErrNoSession, resp.Error.Kind)

	h.Status.Force(agentstate.Status{State: agentstate.Running, PromptID: "p-1"})
	resp = srv.Dispatch(context.Background(), protocol.SessionRequest{Kind: protocol.ReqPrompt, Text: "hi"})
	require.False(t, resp.Ok)
	require.Equal(t, protocol.ErrBusy, resp.Error.Kind)

	h.Status.Force(agentstate.Status{State: agentstate.ShuttingDown})
	resp = srv.Dispatch(context.Background(), protocol.SessionRequest{Kind: protocol.ReqPrompt, Text: "hi"})
	require.False(t, resp.Ok)
	require.Equal(t, protocol.ErrNotReady, resp.Error.Kind)
}

func TestDispatchApproveRequiresIDOrAll(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := srv.Dispatch(context.Background(), protocol.SessionRequest{Kind: protocol.ReqApprove})
	require.False(t, resp.Ok)
	require.Equal(t, protocol.ErrBadRequest, resp.Error.Kind)
}

func TestDispatchApproveResolvesPendingPermission(t *testing.T) {
	srv, h := newTestServer(t)
	h.Permissions.Enqueue(&agentstate.PendingPermission{
		ID:        "perm-1",
		Responder: make(chan agentstate.PermissionOptionKind, 1),
	})

	id := "perm-1"
	resp := srv.Dispatch(context.Background(), protocol.SessionRequest{
		Kind:         protocol.ReqApprove,
		PermissionID: &id,
		Choice:       protocol.ChoiceAllowOnce,
	})
	require.True(t, resp.Ok)
	require.Equal(t, 1, resp.Affected)
	require.Equal(t, 0, h.Permissions.Len())
}

func TestDispatchUnknownKind(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := srv.Dispatch(context.Background(), protocol.SessionRequest{Kind: protocol.RequestKind("bogus")})
	require.False(t, resp.Ok)
	require.Equal(t, protocol.ErrBadRequest, resp.Error.Kind)
}
