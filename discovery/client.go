package discovery

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/agent-team/agent-team/protocol"
)

// dialTimeout bounds a single connection attempt to a session's socket.
const dialTimeout = 2 * time.Second

// Client is a short-lived connection to one session's control socket: the
// CLI subcommands each open one, send one request, read one reply, and
// close — there is no persistent client object anywhere in this package.
type Client struct {
	conn   net.Conn
	framer *protocol.Framer
}

// Dial connects to name's control socket.
func Dial(name string) (*Client, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.Dial("unix", SocketPath(name))
	if err != nil {
		return nil, fmt.Errorf("connect to session %q: %w", name, err)
	}
	return &Client{conn: conn, framer: protocol.NewFramer(conn)}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes req and reads back one SessionResponse.
func (c *Client) Send(req protocol.SessionRequest) (protocol.SessionResponse, error) {
	if err := c.framer.WriteRequest(req); err != nil {
		return protocol.SessionResponse{}, fmt.Errorf("write request: %w", err)
	}
	resp, err := c.framer.ReadResponse()
	if err != nil {
		return protocol.SessionResponse{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}

// Request is a one-shot convenience: dial name, send req, close.
func Request(name string, req protocol.SessionRequest) (protocol.SessionResponse, error) {
	c, err := Dial(name)
	if err != nil {
		return protocol.SessionResponse{}, err
	}
	defer c.Close()
	return c.Send(req)
}

// terminalStates are the AgentStatus values Ask treats as "the turn is
// over" — either successfully (back to idle) or not (error, or the session
// tore itself down while the turn was in flight).
var terminalStates = map[string]bool{
	"idle":          true,
	"error":         true,
	"terminated":    true,
	"shutting_down": true,
}

// Ask sends a prompt, then polls GetStatus with exponential backoff until
// the session reaches idle, error, shutting_down or terminated, then returns
// the last 50 agent-only output entries; these are not limited to this
// prompt's turn and may include earlier replies. Cancelling ctx aborts the poll
// (the prompt itself is not cancelled; use Cancel explicitly for that).
func Ask(ctx context.Context, name, text string, attachments []string) ([]protocol.OutputEntryWire, error) {
	resp, err := Request(name, protocol.SessionRequest{Kind: protocol.ReqPrompt, Text: text, Attachments: attachments})
	if err != nil {
		return nil, err
	}
	if !resp.Ok {
		return nil, fmt.Errorf("prompt rejected: %s", errMessage(resp))
	}

	interval := pollInterval
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		statusResp, err := Request(name, protocol.SessionRequest{Kind: protocol.ReqGetStatus})
		if err != nil {
			return nil, err
		}
		if statusResp.Ok && statusResp.Status != nil && terminalStates[statusResp.Status.State] {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		interval = nextInterval(interval)
	}

	last := uint32(50)
	outResp, err := Request(name, protocol.SessionRequest{Kind: protocol.ReqGetOutput, Last: &last, AgentOnly: true})
	if err != nil {
		return nil, err
	}
	if !outResp.Ok {
		return nil, fmt.Errorf("get_output failed: %s", errMessage(outResp))
	}
	return outResp.Output, nil
}

func errMessage(resp protocol.SessionResponse) string {
	if resp.Error != nil {
		return resp.Error.Message
	}
	return "unknown error"
}
