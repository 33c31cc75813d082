// Package agentstate holds the shared, independently-mutexed state slots
// an agent session's callback adapter and request dispatcher both touch:
// status and the pending-permission queue (the ring buffer is its own
// package, ring, and is the third slot). Keeping these here, rather than on
// session.AgentHandle itself, lets the ACP callback adapter hold references
// to exactly this state without ever aliasing the handle that owns the
// child process and the connection.
package agentstate

import "sync"

// State is the tagged AgentStatus variant from spec.md §3. The zero value
// is Starting.
type State int

const (
	Starting State = iota
	Idle
	Running
	WaitingPermission
	Cancelling
	Error
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Idle:
		return "idle"
	case Running:
		return "running"
	case WaitingPermission:
		return "waiting_permission"
	case Cancelling:
		return "cancelling"
	case Error:
		return "error"
	case ShuttingDown:
		return "shutting_down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Status is the full value of the AgentStatus variant, including the
// payload fields that accompany Running, WaitingPermission, and Error.
type Status struct {
	State        State
	PromptID     string // set when State is Running or WaitingPermission
	PermissionID string // set when State is WaitingPermission
	Message      string // set when State is Error
}

// edges enumerates the state-machine transitions spec.md §3's invariant
// declares legal. Terminated has no outgoing edges.
var edges = map[State]map[State]bool{
	Starting:          {Idle: true, Error: true, Terminated: true},
	Idle:              {Running: true, ShuttingDown: true, Terminated: true},
	Running:           {WaitingPermission: true, Cancelling: true, Idle: true, Error: true, ShuttingDown: true},
	WaitingPermission: {Running: true, Cancelling: true, Idle: true, Error: true, ShuttingDown: true},
	Cancelling:        {Idle: true, Error: true, ShuttingDown: true},
	Error:             {Idle: true, ShuttingDown: true, Terminated: true},
	ShuttingDown:      {Terminated: true, Starting: true},
	Terminated:        {},
}

// ErrIllegalTransition is returned by StatusSlot.Transition when the
// requested move is not one of the declared state-machine edges.
type ErrIllegalTransition struct {
	From, To State
}

func (e *ErrIllegalTransition) Error() string {
	return e.From.String() + " -> " + e.To.String() + " is not a legal transition"
}

// StatusSlot is the mutex-guarded status shared between the ACP callback
// adapter and the request dispatcher. Every mutation validates against the
// declared edges so a bug cannot silently produce an impossible status
// (e.g. WaitingPermission reached from Idle).
type StatusSlot struct {
	mu sync.Mutex
	s  Status
}

// NewStatusSlot creates a slot initialized to Starting.
func NewStatusSlot() *StatusSlot {
	return &StatusSlot{s: Status{State: Starting}}
}

// Get returns the current status.
func (s *StatusSlot) Get() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.s
}

// Transition validates and applies next, replacing the whole Status value.
// Restart is the one operation allowed to re-enter Starting, and only from
// ShuttingDown; that edge is declared above rather than special-cased here.
func (s *StatusSlot) Transition(next Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !edges[s.s.State][next.State] && s.s.State != next.State {
		return &ErrIllegalTransition{From: s.s.State, To: next.State}
	}
	s.s = next
	return nil
}

// Force sets the status without validating the edge. Used by the session
// handle's spawn path, which sets Starting on entry and Error on an
// unrecoverable spawn failure whatever the prior status was.
func (s *StatusSlot) Force(next Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s = next
}
