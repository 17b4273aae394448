package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed delivery so operators can tell a broken
// setup from a briefly unreachable peer.
type ErrorKind string

const (
	ErrKindConfig    ErrorKind = "config"    // missing or malformed connection parameter; never recovers on its own
	ErrKindAddress   ErrorKind = "address"   // recipient JID could not be built
	ErrKindTransport ErrorKind = "transport" // dial, TLS, send or timeout failure
	ErrKindAuth      ErrorKind = "auth"      // SASL or authorization rejected
)

var (
	// ErrMalformedEvent is returned when an event payload cannot be mapped to a review request.
	ErrMalformedEvent = errors.New("malformed review event")
	// ErrUnknownEventType is returned for subjects or payloads naming an unsupported event.
	ErrUnknownEventType = errors.New("unknown event type")
)

// DeliveryError is the error returned by a Messenger for one recipient.
type DeliveryError struct {
	Kind      ErrorKind
	Recipient string // address or username the message was meant for
	Stage     string // session state the failure happened in, if any
	Err       error
}

// NewDeliveryError creates a DeliveryError.
func NewDeliveryError(kind ErrorKind, recipient, stage string, err error) *DeliveryError {
	return &DeliveryError{Kind: kind, Recipient: recipient, Stage: stage, Err: err}
}

func (e *DeliveryError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s error delivering to %q during %s: %v", e.Kind, e.Recipient, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s error delivering to %q: %v", e.Kind, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Fatal reports whether retrying later could ever succeed.
func (e *DeliveryError) Fatal() bool {
	return e.Kind == ErrKindConfig
}

// IsDeliveryErrorKind reports whether err wraps a DeliveryError of the given kind.
func IsDeliveryErrorKind(err error, kind ErrorKind) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// DeliveryErrorKind extracts the kind of a delivery error, or "" when err is not one.
func DeliveryErrorKind(err error) ErrorKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
