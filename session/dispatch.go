package session

import (
	"context"
	"fmt"

	acpsdk "github.com/coder/acp-go-sdk"
	"go.uber.org/zap"

	"github.com/agent-team/agent-team/agentstate"
	"github.com/agent-team/agent-team/ring"
)

// run is the session thread: the goroutine that issues every blocking ACP
// call except the prompt turn itself, which doPrompt starts on its own
// goroutine. It serializes every command off cmdCh, so Prompt/SetMode/
// Restart etc. are never handled concurrently with each other.
func (h *Handle) run() {
	for cmd := range h.cmdCh {
		var err error
		switch cmd.kind {
		case cmdSpawn:
			err = h.doSpawn(cmd.ctx)
		case cmdPrompt:
			err = h.doPrompt(cmd.ctx, cmd.text, cmd.attach)
		case cmdCancel:
			err = h.doCancel(cmd.ctx)
		case cmdApprove:
			var n int
			n, err = h.doApprove(cmd.permID, cmd.all, cmd.choice)
			if cmd.resultN != nil {
				*cmd.resultN = n
			}
		case cmdSetMode:
			err = h.doSetMode(cmd.ctx, cmd.mode)
		case cmdSetConfig:
			err = h.doSetConfig(cmd.ctx, cmd.key, cmd.value)
		case cmdRestart:
			err = h.doRestart(cmd.ctx)
		case cmdShutdown:
			err = h.doShutdown(cmd.ctx)
			cmd.reply <- err
			return
		}
		cmd.reply <- err
	}
}

// NotIdleError reports that Prompt was rejected because the session wasn't
// in Idle. Callers that need to distinguish "a turn is already running" from
// "there's no session to prompt yet" from "tearing down" should type-assert
// for it rather than matching on the error string.
type NotIdleError struct {
	State agentstate.State
}

func (e *NotIdleError) Error() string {
	return fmt.Sprintf("cannot prompt while status is %s", e.State)
}

// Prompt submits a user prompt. It returns once the session thread has
// moved to Running and started the turn on a background goroutine; the
// agent's reply
// streams into the output buffer asynchronously via SessionUpdate, and
// Prompt itself does not wait for the turn to finish (spec.md §4.5:
// fire-and-forget).
func (h *Handle) Prompt(ctx context.Context, text string, attachments []string) error {
	cur := h.Status.Get()
	if cur.State != agentstate.Idle {
		return &NotIdleError{State: cur.State}
	}
	return h.submit(ctx, cmdPrompt, func(c *command) {
		c.text = text
		c.attach = attachments
	})
}

func (h *Handle) doPrompt(ctx context.Context, text string, attachments []string) error {
	promptID := fmt.Sprintf("p-%d", h.Buffer.Len())
	if err := h.Status.Transition(agentstate.Status{State: agentstate.Running, PromptID: promptID}); err != nil {
		return err
	}
	h.Buffer.Append(ring.UserPrompt{}, text)

	blocks := make([]acpsdk.ContentBlock, 0, 1+len(attachments))
	blocks = append(blocks, acpsdk.TextBlock(text))
	for _, a := range attachments {
		blocks = append(blocks, acpsdk.TextBlock(a))
	}

	// The prompt turn itself runs to completion on a background goroutine
	// so the session thread stays free to serialize Cancel/SetMode/etc.
	// against it without blocking the caller of Prompt on the agent's
	// full reply.
	go h.runPromptTurn(ctx, promptID, blocks)
	return nil
}

func (h *Handle) runPromptTurn(ctx context.Context, promptID string, blocks []acpsdk.ContentBlock) {
	resp, err := h.conn.Prompt(ctx, acpsdk.PromptRequest{
		SessionId: h.sessionID,
		Prompt:    blocks,
	})
	if h.adapter != nil {
		h.adapter.FlushOnAbort()
	}

	cur := h.Status.Get()
	if cur.State != agentstate.Running && cur.State != agentstate.Cancelling {
		// A Restart or Shutdown already moved status on; don't clobber it.
		return
	}

	if err != nil {
		h.Buffer.Append(ring.Error{}, err.Error())
		_ = h.Status.Transition(agentstate.Status{State: agentstate.Error, Message: err.Error()})
		return
	}

	h.Buffer.Append(ring.Info{}, fmt.Sprintf("stop: %s", resp.StopReason))
	_ = h.Status.Transition(agentstate.Status{State: agentstate.Idle})
}

// Cancel requests the in-flight prompt turn stop. It must be deliverable
// while conn.Prompt is still blocked on the prompt-turn goroutine; it is
// routed through cmdCh so the Cancelling status transition stays
// serialized with everything else, and the session thread is free to take
// it because the prompt turn does not run there. conn.Cancel's own
// notification call is non-blocking by ACP design.
func (h *Handle) Cancel(ctx context.Context) error {
	cur := h.Status.Get()
	if cur.State != agentstate.Running && cur.State != agentstate.WaitingPermission {
		return fmt.Errorf("nothing to cancel in status %s", cur.State)
	}
	return h.submit(ctx, cmdCancel)
}

func (h *Handle) doCancel(ctx context.Context) error {
	cur := h.Status.Get()
	if err := h.Status.Transition(agentstate.Status{State: agentstate.Cancelling, PromptID: cur.PromptID}); err != nil {
		return err
	}
	h.Permissions.CloseAll()
	return h.conn.Cancel(ctx, acpsdk.CancelNotification{SessionId: h.sessionID})
}

// SetMode forwards a session mode change and, on success, records the new
// mode for GetInfo.
func (h *Handle) SetMode(ctx context.Context, mode string) error {
	return h.submit(ctx, cmdSetMode, func(c *command) { c.mode = mode })
}

func (h *Handle) doSetMode(ctx context.Context, mode string) error {
	_, err := h.conn.SetSessionMode(ctx, acpsdk.SetSessionModeRequest{
		SessionId: h.sessionID,
		ModeId:    acpsdk.SessionModeId(mode),
	})
	if err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	h.mode = mode
	return nil
}

// SetConfig forwards a session config option change and, on success,
// records it for GetInfo.
func (h *Handle) SetConfig(ctx context.Context, key, value string) error {
	return h.submit(ctx, cmdSetConfig, func(c *command) { c.key = key; c.value = value })
}

func (h *Handle) doSetConfig(ctx context.Context, key, value string) error {
	// SetSessionConfigOption has no attested call shape anywhere in the
	// retrieved pack; DESIGN.md records the decision to model it by direct
	// analogy to SetSessionMode's {SessionId, <value>} shape.
	_, err := h.conn.SetSessionConfigOption(ctx, acpsdk.SetSessionConfigOptionRequest{
		SessionId: h.sessionID,
		ConfigId:  acpsdk.SessionConfigOptionId(key),
		Value:     value,
	})
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	h.config[key] = value
	return nil
}

// Approve resolves one pending permission (or every pending permission, if
// id is empty and all is true) with choice, routed through the session
// thread so the queue-drained check below serializes with the prompt turn
// it may resume.
func (h *Handle) Approve(ctx context.Context, id string, all bool, choice agentstate.PermissionOptionKind) (int, error) {
	var n int
	err := h.submit(ctx, cmdApprove, func(c *command) {
		c.permID = id
		c.all = all
		c.choice = choice
		c.resultN = &n
	})
	return n, err
}

func (h *Handle) doApprove(id string, all bool, choice agentstate.PermissionOptionKind) (int, error) {
	var n int
	if all {
		n = h.Permissions.ResolveAll(choice)
	} else if h.Permissions.Resolve(id, choice) {
		n = 1
	} else {
		return 0, fmt.Errorf("no pending permission %q", id)
	}

	// spec.md §4.4/§4.5: once the queue drains, a session parked in
	// WaitingPermission resumes Running rather than staying wedged there
	// until some other transition happens to touch it.
	if h.Permissions.Len() == 0 {
		cur := h.Status.Get()
		if cur.State == agentstate.WaitingPermission {
			if err := h.Status.Transition(agentstate.Status{State: agentstate.Running, PromptID: cur.PromptID}); err != nil {
				h.log.Error("failed to resume after permission queue drained", zap.Error(err))
			}
		}
	}
	return n, nil
}

// Restart tears down the current connection and child process, preserving
// name/type/mode/config/output buffer, and spawns a fresh one.
func (h *Handle) Restart(ctx context.Context) error {
	return h.submit(ctx, cmdRestart)
}

func (h *Handle) doRestart(ctx context.Context) error {
	cur := h.Status.Get()
	if err := h.Status.Transition(agentstate.Status{State: agentstate.ShuttingDown}); err != nil && cur.State != agentstate.ShuttingDown {
		return err
	}
	h.Permissions.CloseAll()
	_ = killProcess(h.cmd)
	h.conn = nil
	h.cmd = nil
	h.adapter = nil
	h.sessionID = ""

	if err := h.Status.Transition(agentstate.Status{State: agentstate.Starting}); err != nil {
		return err
	}
	if err := h.doSpawn(ctx); err != nil {
		return err
	}
	h.Buffer.Append(ring.Info{}, "restarted")
	return nil
}

// Shutdown gracefully tears the session down: SIGTERM the child, wait up
// to shutdownGrace, then SIGKILL, per spec.md §5.
func (h *Handle) Shutdown(ctx context.Context) error {
	return h.submit(ctx, cmdShutdown)
}

func (h *Handle) doShutdown(ctx context.Context) error {
	_ = h.Status.Transition(agentstate.Status{State: agentstate.ShuttingDown})
	h.Permissions.CloseAll()

	if h.cmd != nil && h.cmd.Process != nil {
		waitCh := make(chan error, 1)
		go func() { waitCh <- h.cmd.Wait() }()

		_ = h.cmd.Process.Signal(terminateSignal())
		select {
		case <-waitCh:
		case <-timeAfter(shutdownGrace):
			_ = h.cmd.Process.Kill()
			<-waitCh
		}
	}

	_ = h.Status.Transition(agentstate.Status{State: agentstate.Terminated})
	close(h.doneCh)
	h.log.Info("session shut down", zap.String("name", h.name))
	return nil
}
