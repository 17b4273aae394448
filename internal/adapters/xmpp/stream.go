package xmpp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	goxmpp "github.com/xmppo/go-xmpp"
	"mellium.im/xmpp/jid"
)

// ErrAuthRejected marks failures where the server refused the sender credentials.
var ErrAuthRejected = errors.New("xmpp authentication rejected")

// StreamOptions carries everything needed to open one client stream.
type StreamOptions struct {
	Address       string // host:port
	Sender        jid.JID
	Password      string
	Resource      string
	StartTLS      bool
	TLSSkipVerify bool
}

// Stream is a single XMPP client connection. The dispatcher calls the methods
// in order and never reuses a Stream.
type Stream interface {
	// Connect opens the transport and negotiates STARTTLS when requested.
	Connect(ctx context.Context) error
	// Authenticate logs in as the sender. Rejections wrap ErrAuthRejected.
	Authenticate(ctx context.Context) error
	// Send delivers one chat message.
	Send(ctx context.Context, to jid.JID, body string) error
	// Disconnect closes the stream. It is safe to call more than once.
	Disconnect() error
}

// StreamFactory creates a fresh Stream for one delivery.
type StreamFactory func(opts StreamOptions) Stream

// NewClientStream is the StreamFactory backed by github.com/xmppo/go-xmpp.
func NewClientStream(opts StreamOptions) Stream {
	return &clientStream{opts: opts}
}

// clientStream adapts go-xmpp to Stream. go-xmpp dials, negotiates STARTTLS
// and authenticates inside a single NewClient call, so Connect runs that call
// and an authentication failure it returns is held back and reported by
// Authenticate. This keeps the session states aligned with where the failure
// actually happened.
type clientStream struct {
	opts       StreamOptions
	client     *goxmpp.Client
	pendingErr error
}

func (s *clientStream) options() goxmpp.Options {
	o := goxmpp.Options{
		Host:     s.opts.Address,
		User:     s.opts.Sender.Bare().String(),
		Password: s.opts.Password,
		Resource: s.opts.Resource,
		// Direct TLS (port 5223) is not supported; security is only ever negotiated in-band.
		NoTLS: true,
	}
	if s.opts.StartTLS {
		o.StartTLS = true
		o.TLSConfig = &tls.Config{
			ServerName:         s.opts.Sender.Domainpart(),
			InsecureSkipVerify: s.opts.TLSSkipVerify, //nolint:gosec // operator opt-in via xmpp.tls_skip_verify
		}
	} else {
		o.InsecureAllowUnencryptedAuth = true
	}
	return o
}

func (s *clientStream) Connect(ctx context.Context) error {
	type result struct {
		client *goxmpp.Client
		err    error
	}
	done := make(chan result, 1)
	opts := s.options()
	go func() {
		c, err := opts.NewClient()
		done <- result{client: c, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if isAuthFailure(r.err) {
				s.pendingErr = fmt.Errorf("%w: %v", ErrAuthRejected, r.err)
				return nil
			}
			return r.err
		}
		s.client = r.client
		return nil
	case <-ctx.Done():
		// The dial is still running; close whatever it eventually produces.
		go func() {
			if r := <-done; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return ctx.Err()
	}
}

func (s *clientStream) Authenticate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.pendingErr != nil {
		return s.pendingErr
	}
	if s.client == nil {
		return errors.New("xmpp stream is not connected")
	}
	return nil
}

func (s *clientStream) Send(ctx context.Context, to jid.JID, body string) error {
	if s.client == nil {
		return errors.New("xmpp stream is not connected")
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.client.Send(goxmpp.Chat{Remote: to.String(), Type: "chat", Text: body})
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Closing the socket unblocks the pending write.
		_ = s.client.Close()
		return ctx.Err()
	}
}

func (s *clientStream) Disconnect() error {
	if s.client == nil {
		return nil
	}
	c := s.client
	s.client = nil
	return c.Close()
}

// saslFailureMarkers match the errors go-xmpp builds from a SASL <failure/>
// or from a mechanism negotiation it cannot complete.
var saslFailureMarkers = []string{"auth failure", "authentication", "not-authorized", "sasl", "mechanism", "scram"}

// isAuthFailure separates credential problems from network and TLS trouble in
// the errors go-xmpp returns from NewClient.
func isAuthFailure(err error) bool {
	var (
		netErr       net.Error
		recordErr    tls.RecordHeaderError
		certErr      *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &netErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &recordErr), errors.As(err, &certErr),
		errors.As(err, &authorityErr), errors.As(err, &hostnameErr), errors.As(err, &invalidErr):
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "x509:") || strings.Contains(msg, "tls:") {
		return false
	}
	for _, marker := range saslFailureMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
