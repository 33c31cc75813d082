// Package toolserver implements the one host tool server SPEC_FULL.md §4.8
// adds: a small MCP server the agent itself launches over stdio (per its
// own McpServers stdio directive in new_session) that answers a single
// session_status tool by dialing this session's own control socket —
// exactly the same GetStatus/GetOutput a client CLI would issue — so the
// agent can ask "what have I already told the user" without the host
// granting it any filesystem or terminal capability.
//
// Grounded on furniture/mcpwrap.go's WrapAsMCP (mcp.NewServer,
// srv.AddTool, JSON-args-in/mcp.CallToolResult-out handler shape),
// narrowed from a general furniture-wrapping facility to this one
// read-only tool; the dial-the-control-socket body is grounded on the
// same Framer the discovery client uses to talk to a running session.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agent-team/agent-team/protocol"
)

// dialTimeout bounds the tool server's connection to the control socket;
// the socket is local and already accepting connections by the time an
// agent can reach this tool, so a short timeout is enough.
const dialTimeout = 2 * time.Second

// New builds the session-info MCP server. socketPath is the control
// socket of the session this tool server was launched for, passed as a
// command-line argument by the McpServerStdio entry the session registers
// on new_session.
func New(socketPath string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "session-info",
		Version: "1.0.0",
	}, nil)

	srv.AddTool(
		&mcp.Tool{
			Name:        "session_status",
			Description: "Report this session's own status and recent output, so the agent can tell what it already said without re-reading its own transcript.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		statusHandler(socketPath),
	)

	return srv
}

// Serve runs srv over stdio until ctx is cancelled or the transport closes.
// This is the entry point the hidden tool-server CLI subcommand calls;
// the calling agent process supplies stdin/stdout as the MCP transport the
// way it would for any other stdio MCP server it launches.
func Serve(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func statusHandler(socketPath string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := fetchStatus(ctx, socketPath)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("could not read session status: %v", err)}},
				IsError: true,
			}, nil
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("failed to marshal status: %v", err)}},
				IsError: true,
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	}
}

// statusSnapshot is what session_status reports.
type statusSnapshot struct {
	Status     protocol.StatusWire       `json:"status"`
	LastOutput []protocol.OutputEntryWire `json:"last_output"`
}

func fetchStatus(ctx context.Context, socketPath string) (statusSnapshot, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return statusSnapshot{}, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	framer := protocol.NewFramer(conn)

	statusResp, err := roundTrip(framer, protocol.SessionRequest{Kind: protocol.ReqGetStatus})
	if err != nil {
		return statusSnapshot{}, err
	}
	if !statusResp.Ok || statusResp.Status == nil {
		return statusSnapshot{}, fmt.Errorf("get_status: %s", errMessage(statusResp))
	}

	// The control socket answers one request per connection, so the output
	// query needs a connection of its own.
	_ = conn.Close()
	outConn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return statusSnapshot{}, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer outConn.Close()
	framer = protocol.NewFramer(outConn)

	last := uint32(5)
	outputResp, err := roundTrip(framer, protocol.SessionRequest{Kind: protocol.ReqGetOutput, Last: &last, AgentOnly: true})
	if err != nil {
		return statusSnapshot{}, err
	}
	if !outputResp.Ok {
		return statusSnapshot{}, fmt.Errorf("get_output: %s", errMessage(outputResp))
	}

	return statusSnapshot{Status: *statusResp.Status, LastOutput: outputResp.Output}, nil
}

func roundTrip(f *protocol.Framer, req protocol.SessionRequest) (protocol.SessionResponse, error) {
	if err := f.WriteRequest(req); err != nil {
		return protocol.SessionResponse{}, fmt.Errorf("write %s: %w", req.Kind, err)
	}
	resp, err := f.ReadResponse()
	if err != nil {
		return protocol.SessionResponse{}, fmt.Errorf("read reply to %s: %w", req.Kind, err)
	}
	return resp, nil
}

func errMessage(resp protocol.SessionResponse) string {
	if resp.Error != nil {
		return resp.Error.Message
	}
	return "unknown error"
}
