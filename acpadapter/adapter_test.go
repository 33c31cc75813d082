package acpadapter

import (
	"context"
	"testing"
	"time"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/agent-team/agent-team/agentstate"
	"github.com/agent-team/agent-team/ring"
)

func newTestAdapter() *Adapter {
	buf := ring.NewOutputRingBuffer(100)
	status := agentstate.NewStatusSlot()
	_ = status.Transition(agentstate.Status{State: agentstate.Idle})
	_ = status.Transition(agentstate.Status{State: agentstate.Running, PromptID: "p1"})
	return New(buf, status, agentstate.NewPermissionQueue(), nil, nil, nil)
}

func TestSessionUpdateConcatenatesFragments(t *testing.T) {
	a := newTestAdapter()

	chunk := func(text string) acpsdk.SessionNotification {
		return acpsdk.SessionNotification{
			Update: acpsdk.SessionUpdate{
				AgentMessageChunk: &acpsdk.AgentMessageChunk{Content: acpsdk.TextBlock(text)},
			},
		}
	}

	if err := a.SessionUpdate(context.Background(), chunk("hel")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.SessionUpdate(context.Background(), chunk("lo")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Fragments of the same kind are not yet flushed to the buffer.
	if a.Buffer.Len() != 0 {
		t.Fatalf("expected no entries before flush, got %d", a.Buffer.Len())
	}

	a.FlushOnAbort()

	tail := a.Buffer.Tail(1)
	if len(tail) != 1 {
		t.Fatalf("expected one flushed entry, got %d", len(tail))
	}
	if tail[0].Text != "hello" {
		t.Fatalf("expected concatenated text %q, got %q", "hello", tail[0].Text)
	}
	if _, ok := tail[0].Kind.(ring.AgentMessage); !ok {
		t.Fatalf("expected AgentMessage kind, got %T", tail[0].Kind)
	}
}

func TestSessionUpdateFlushesOnKindChange(t *testing.T) {
	a := newTestAdapter()

	msgUpdate := acpsdk.SessionNotification{
		Update: acpsdk.SessionUpdate{
			AgentMessageChunk: &acpsdk.AgentMessageChunk{Content: acpsdk.TextBlock("reply")},
		},
	}
	thoughtUpdate := acpsdk.SessionNotification{
		Update: acpsdk.SessionUpdate{
			AgentThoughtChunk: &acpsdk.AgentThoughtChunk{Content: acpsdk.TextBlock("thinking")},
		},
	}

	_ = a.SessionUpdate(context.Background(), msgUpdate)
	_ = a.SessionUpdate(context.Background(), thoughtUpdate)

	tail := a.Buffer.Tail(10)
	if len(tail) != 1 {
		t.Fatalf("expected the message fragment flushed when the thought fragment arrived, got %d entries", len(tail))
	}
	if tail[0].Text != "reply" {
		t.Fatalf("expected flushed text %q, got %q", "reply", tail[0].Text)
	}
}

func TestRequestPermissionSynchronousPolicy(t *testing.T) {
	a := newTestAdapter()
	a.Policy = AllowAll

	req := acpsdk.RequestPermissionRequest{
		Options: []acpsdk.PermissionOption{
			{OptionId: "deny", Name: "Reject", Kind: acpsdk.PermissionOptionKindRejectOnce},
			{OptionId: "allow", Name: "Allow", Kind: acpsdk.PermissionOptionKindAllowOnce},
		},
	}

	resp, err := a.RequestPermission(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Outcome.Selected == nil || resp.Outcome.Selected.OptionId != "allow" {
		t.Fatalf("expected auto-approve to select the allow option, got %+v", resp.Outcome)
	}
	if a.Permissions.Len() != 0 {
		t.Fatalf("expected no queued permission when the policy resolves synchronously")
	}
}

func TestRequestPermissionQueuesAndWaitsForApproval(t *testing.T) {
	a := newTestAdapter()

	req := acpsdk.RequestPermissionRequest{
		Options: []acpsdk.PermissionOption{
			{OptionId: "allow", Name: "Allow", Kind: acpsdk.PermissionOptionKindAllowOnce},
		},
	}

	type result struct {
		resp acpsdk.RequestPermissionResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := a.RequestPermission(context.Background(), req)
		done <- result{resp, err}
	}()

	deadline := time.After(time.Second)
	for a.Permissions.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for permission to be enqueued")
		default:
		}
	}
	if a.Status.Get().State != agentstate.WaitingPermission {
		t.Fatalf("expected status WaitingPermission, got %s", a.Status.Get().State)
	}

	tail := a.Buffer.Tail(1)
	id := ""
	if len(tail) == 1 {
		if pr, ok := tail[0].Kind.(ring.PermissionRequest); ok {
			id = pr.ID
		}
	}
	if id == "" {
		t.Fatal("expected a PermissionRequest entry recording the pending id")
	}

	if !a.Permissions.Resolve(id, agentstate.AllowOnce) {
		t.Fatal("expected Resolve to find the pending permission")
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if r.resp.Outcome.Selected == nil || r.resp.Outcome.Selected.OptionId != "allow" {
			t.Fatalf("expected resolved response to select allow, got %+v", r.resp.Outcome)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for RequestPermission to return")
	}
}

func TestFilesystemAndTerminalCallbacksUnsupported(t *testing.T) {
	a := newTestAdapter()
	if _, err := a.ReadTextFile(context.Background(), acpsdk.ReadTextFileRequest{}); err == nil {
		t.Fatal("expected ReadTextFile to be unsupported")
	}
	if _, err := a.CreateTerminal(context.Background(), acpsdk.CreateTerminalRequest{}); err == nil {
		t.Fatal("expected CreateTerminal to be unsupported")
	}
}
