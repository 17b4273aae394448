package xmpp

import (
	"fmt"
)

// State is the phase of a single-message XMPP session.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAuthorized
	StateMessageSent
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthorized:
		return "authorized"
	case StateMessageSent:
		return "message_sent"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further event is accepted.
func (s State) Terminal() bool {
	return s == StateDisconnected || s == StateFailed
}

// Event is something the transport reported to the session.
type Event int

const (
	EventConnected Event = iota
	EventAuthorized
	EventMessageSent
	EventDisconnected
	EventFailure
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventAuthorized:
		return "authorized"
	case EventMessageSent:
		return "message_sent"
	case EventDisconnected:
		return "disconnected"
	case EventFailure:
		return "failure"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Action is what the driver must do after entering a state.
type Action int

const (
	ActionNone Action = iota
	ActionAuthenticate
	ActionSendMessage
	ActionDisconnect
)

// Transition returns the next state and the action to take for event e in
// state s. Any event the current state does not expect moves to StateFailed,
// as does EventFailure from anywhere. Terminal states never change.
func Transition(s State, e Event) (State, Action) {
	if s.Terminal() {
		return s, ActionNone
	}
	if e == EventFailure {
		return StateFailed, ActionNone
	}

	switch {
	case s == StateConnecting && e == EventConnected:
		return StateAuthenticating, ActionAuthenticate
	case s == StateAuthenticating && e == EventAuthorized:
		return StateAuthorized, ActionSendMessage
	case s == StateAuthorized && e == EventMessageSent:
		return StateMessageSent, ActionDisconnect
	case s == StateMessageSent && e == EventDisconnected:
		return StateDisconnected, ActionNone
	}
	return StateFailed, ActionNone
}

// session tracks one delivery. It is created per Send call and discarded.
type session struct {
	state   State
	history []State
}

func newSession() *session {
	return &session{state: StateConnecting, history: []State{StateConnecting}}
}

// apply feeds e to the state machine and returns the action to perform.
func (s *session) apply(e Event) Action {
	next, action := Transition(s.state, e)
	if next != s.state {
		s.history = append(s.history, next)
	}
	s.state = next
	return action
}
