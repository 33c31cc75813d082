// Package protocol defines the request/reply schema exchanged over a
// session's control socket, and the newline-delimited JSON framing used to
// carry it.
package protocol

// ErrorKind is the closed taxonomy of control-protocol error replies.
type ErrorKind string

const (
	ErrBadRequest ErrorKind = "bad_request"
	ErrNotReady   ErrorKind = "not_ready"
	ErrBusy       ErrorKind = "busy"
	ErrNoSession  ErrorKind = "no_session"
	ErrNotFound   ErrorKind = "not_found"
	ErrAgentError ErrorKind = "agent_error"
	ErrInternal   ErrorKind = "internal"
)

// RequestKind discriminates the request union.
type RequestKind string

const (
	ReqGetStatus  RequestKind = "get_status"
	ReqGetInfo    RequestKind = "get_info"
	ReqGetOutput  RequestKind = "get_output"
	ReqPrompt     RequestKind = "prompt"
	ReqCancel     RequestKind = "cancel"
	ReqApprove    RequestKind = "approve"
	ReqDeny       RequestKind = "deny"
	ReqSetMode    RequestKind = "set_mode"
	ReqSetConfig  RequestKind = "set_config"
	ReqRestart    RequestKind = "restart"
	ReqShutdown   RequestKind = "shutdown"
)

// PermissionChoice is the option kind a client selects when approving or
// denying a pending permission.
type PermissionChoice string

const (
	ChoiceAllowOnce   PermissionChoice = "allow_once"
	ChoiceAllowAlways PermissionChoice = "allow_always"
	ChoiceReject      PermissionChoice = "reject"
	ChoiceRejectAlway PermissionChoice = "reject_always"
)

// SessionRequest is the envelope for every request a client sends. Exactly
// one group of fields is meaningful, selected by Kind; this mirrors the
// flat-struct-with-discriminator shape the teacher's ACP types use
// (acpsdk.SessionNotification.Update) rather than a Go-native sum type,
// since the wire form must round-trip through plain JSON.
type SessionRequest struct {
	Kind RequestKind `json:"kind"`

	// GetOutput
	Last      *uint32 `json:"last,omitempty"`
	AgentOnly bool    `json:"agent_only,omitempty"`

	// Prompt
	Text        string   `json:"text,omitempty"`
	Attachments []string `json:"attachments,omitempty"`

	// Approve / Deny
	PermissionID *string          `json:"permission_id,omitempty"`
	All          bool             `json:"all,omitempty"`
	Choice       PermissionChoice `json:"choice,omitempty"`

	// SetMode
	Mode string `json:"mode,omitempty"`

	// SetConfig
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// OutputEntryWire is the JSON rendering of a ring.OutputEntry: OutputType
// is flattened to a "kind" discriminator plus whatever kind-specific
// fields that kind carries.
type OutputEntryWire struct {
	Sequence   uint64 `json:"sequence"`
	Kind       string `json:"kind"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolStatus string `json:"tool_status,omitempty"`
	PermissionID string `json:"permission_id,omitempty"`
}

// StatusWire is the JSON rendering of an AgentStatus value.
type StatusWire struct {
	State        string  `json:"state"`
	PromptID     *string `json:"prompt_id,omitempty"`
	PermissionID *string `json:"permission_id,omitempty"`
	Message      string  `json:"message,omitempty"`
}

// InfoWire answers GetInfo.
type InfoWire struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	PID       int               `json:"pid"`
	StartedAt string            `json:"started_at"`
	AgentName string            `json:"agent_name,omitempty"`
	AgentVer  string            `json:"agent_version,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Mode      string            `json:"mode,omitempty"`
	Config    map[string]string `json:"config,omitempty"`
}

// ErrorWire is the body of an error reply.
type ErrorWire struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// SessionResponse is the envelope for every reply the server sends. On
// success Error is nil; on failure it is the only populated field besides
// Kind/Ok.
type SessionResponse struct {
	Kind RequestKind `json:"kind"`
	Ok   bool        `json:"ok"`

	Error *ErrorWire `json:"error,omitempty"`

	Status *StatusWire       `json:"status,omitempty"`
	Info   *InfoWire         `json:"info,omitempty"`
	Output []OutputEntryWire `json:"output,omitempty"`

	// Approve/Deny: how many pending permissions the request affected.
	Affected int `json:"affected,omitempty"`
}

// Err builds an error SessionResponse of the given kind and request kind.
func Err(kind RequestKind, errKind ErrorKind, message string) SessionResponse {
	return SessionResponse{
		Kind:  kind,
		Ok:    false,
		Error: &ErrorWire{Kind: errKind, Message: message},
	}
}

// Ack builds a bare success SessionResponse carrying no payload.
func Ack(kind RequestKind) SessionResponse {
	return SessionResponse{Kind: kind, Ok: true}
}
