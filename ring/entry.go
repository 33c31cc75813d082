// Package ring implements the bounded output log every agent session keeps:
// a fixed-capacity, strictly-ordered buffer of tagged entries that streaming
// agent output, tool calls, and lifecycle notices all funnel into.
package ring

import "time"

// OutputType is a sealed tagged variant. The concrete kinds below are the
// only implementations; the unexported marker method prevents other
// packages from inventing new kinds that the printer and control protocol
// would not know how to render.
type OutputType interface {
	outputType()
	// Kind returns the wire discriminator used by the control protocol.
	Kind() string
}

// UserPrompt is the text a client submitted via Prompt.
type UserPrompt struct{}

// AgentMessage is a (possibly reassembled) chunk of the agent's reply text.
type AgentMessage struct{}

// AgentThought is a (possibly reassembled) chunk of the agent's private
// reasoning, when the agent streams one.
type AgentThought struct{}

// ToolCall records the start of a tool invocation.
type ToolCall struct {
	Name   string
	Status string
}

// ToolCallUpdate records a status change or result for an in-flight tool call.
type ToolCallUpdate struct {
	Name   string
	Status string
}

// Plan is an agent-reported plan update.
type Plan struct{}

// PermissionRequest marks that the agent asked the host to approve an action.
type PermissionRequest struct {
	ID string
}

// Info is a structured, non-agent informational line (a prompt turn's stop
// reason, a completed restart, and similar lifecycle notices).
type Info struct{}

// Error is a structured error line, either from a failed ACP call or an
// internal fault.
type Error struct{}

func (UserPrompt) outputType()        {}
func (AgentMessage) outputType()      {}
func (AgentThought) outputType()      {}
func (ToolCall) outputType()          {}
func (ToolCallUpdate) outputType()    {}
func (Plan) outputType()              {}
func (PermissionRequest) outputType() {}
func (Info) outputType()              {}
func (Error) outputType()             {}

func (UserPrompt) Kind() string        { return "user_prompt" }
func (AgentMessage) Kind() string      { return "agent_message" }
func (AgentThought) Kind() string      { return "agent_thought" }
func (ToolCall) Kind() string          { return "tool_call" }
func (ToolCallUpdate) Kind() string    { return "tool_call_update" }
func (Plan) Kind() string              { return "plan" }
func (PermissionRequest) Kind() string { return "permission_request" }
func (Info) Kind() string              { return "info" }
func (Error) Kind() string             { return "error" }

// OutputEntry is one line of session history.
type OutputEntry struct {
	Sequence  uint64
	Kind      OutputType
	Text      string
	Timestamp time.Time
}

// isAgentProse reports whether e's kind is one of the "agent_only" kinds
// used by tail_filtered and by the prompt-and-await client helper.
func (e OutputEntry) isAgentProse() bool {
	switch e.Kind.(type) {
	case AgentMessage, AgentThought:
		return true
	default:
		return false
	}
}
