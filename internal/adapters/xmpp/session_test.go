package xmpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name       string
		from       State
		event      Event
		wantState  State
		wantAction Action
	}{
		{"connected", StateConnecting, EventConnected, StateAuthenticating, ActionAuthenticate},
		{"authorized", StateAuthenticating, EventAuthorized, StateAuthorized, ActionSendMessage},
		{"message sent", StateAuthorized, EventMessageSent, StateMessageSent, ActionDisconnect},
		{"disconnected", StateMessageSent, EventDisconnected, StateDisconnected, ActionNone},

		{"failure while connecting", StateConnecting, EventFailure, StateFailed, ActionNone},
		{"failure while authenticating", StateAuthenticating, EventFailure, StateFailed, ActionNone},
		{"failure when authorized", StateAuthorized, EventFailure, StateFailed, ActionNone},
		{"failure after send", StateMessageSent, EventFailure, StateFailed, ActionNone},

		{"authorized before connected", StateConnecting, EventAuthorized, StateFailed, ActionNone},
		{"early disconnect", StateAuthenticating, EventDisconnected, StateFailed, ActionNone},
		{"send before auth", StateAuthenticating, EventMessageSent, StateFailed, ActionNone},
		{"reconnect when authorized", StateAuthorized, EventConnected, StateFailed, ActionNone},
		{"disconnect before send", StateAuthorized, EventDisconnected, StateFailed, ActionNone},

		{"disconnected is terminal", StateDisconnected, EventConnected, StateDisconnected, ActionNone},
		{"failed is terminal", StateFailed, EventConnected, StateFailed, ActionNone},
		{"failed ignores failure", StateFailed, EventFailure, StateFailed, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, action := Transition(tt.from, tt.event)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantAction, action)
		})
	}
}

func TestSessionHistory(t *testing.T) {
	s := newSession()
	for _, e := range []Event{EventConnected, EventAuthorized, EventMessageSent, EventDisconnected} {
		s.apply(e)
	}

	assert.Equal(t, []State{StateConnecting, StateAuthenticating, StateAuthorized, StateMessageSent, StateDisconnected}, s.history)
	assert.True(t, s.state.Terminal())
}

func TestSessionFailureIsRecordedOnce(t *testing.T) {
	s := newSession()
	s.apply(EventConnected)
	s.apply(EventFailure)
	s.apply(EventFailure)

	assert.Equal(t, []State{StateConnecting, StateAuthenticating, StateFailed}, s.history)
}

func TestStateAndEventNames(t *testing.T) {
	assert.Equal(t, "message_sent", StateMessageSent.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.Equal(t, "failure", EventFailure.String())
	assert.Equal(t, "event(42)", Event(42).String())
}
