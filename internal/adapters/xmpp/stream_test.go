package xmpp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mellium.im/xmpp/jid"
)

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sasl failure", errors.New("auth failure: <not-authorized/>"), true},
		{"plain unsupported", errors.New("PLAIN authentication is not an option"), true},
		{"scram mismatch", errors.New("SCRAM: server signature mismatch"), true},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, false},
		{"eof", fmt.Errorf("reading stream: %w", io.EOF), false},
		{"unexpected eof", io.ErrUnexpectedEOF, false},
		{"other", errors.New("expected <features> element"), false},
		{"unknown authority", &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{}}, false},
		{"wrapped unknown authority", fmt.Errorf("starttls: %w", &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{}}), false},
		{"bare unknown authority", x509.UnknownAuthorityError{}, false},
		{"hostname mismatch", x509.HostnameError{Certificate: &x509.Certificate{}, Host: "xmpp.example.com"}, false},
		{"expired certificate", x509.CertificateInvalidError{Cert: &x509.Certificate{}, Reason: x509.Expired}, false},
		{"flattened tls text", errors.New("tls: failed to verify certificate: x509: certificate signed by unknown authority"), false},
		{"unencrypted auth refused", errors.New("refusing to authenticate over unencrypted TCP connection"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthFailure(tt.err))
		})
	}
}

func TestClientStreamOptionsWithStartTLS(t *testing.T) {
	sender := jid.MustParse("notifier@example.com/ignored")
	s := &clientStream{opts: StreamOptions{
		Address:       "xmpp.example.com:5222",
		Sender:        sender,
		Password:      "secret",
		Resource:      "review-notifier",
		StartTLS:      true,
		TLSSkipVerify: true,
	}}

	o := s.options()

	assert.Equal(t, "xmpp.example.com:5222", o.Host)
	assert.Equal(t, "notifier@example.com", o.User)
	assert.Equal(t, "review-notifier", o.Resource)
	assert.True(t, o.NoTLS)
	assert.True(t, o.StartTLS)
	require.NotNil(t, o.TLSConfig)
	assert.Equal(t, "example.com", o.TLSConfig.ServerName)
	assert.True(t, o.TLSConfig.InsecureSkipVerify)
	assert.False(t, o.InsecureAllowUnencryptedAuth)
}

func TestClientStreamOptionsWithoutTLS(t *testing.T) {
	s := &clientStream{opts: StreamOptions{
		Address: "localhost:5222",
		Sender:  jid.MustParse("notifier@localhost"),
	}}

	o := s.options()

	assert.False(t, o.StartTLS)
	assert.Nil(t, o.TLSConfig)
	assert.True(t, o.InsecureAllowUnencryptedAuth)
}

func TestClientStreamHeldBackAuthError(t *testing.T) {
	s := &clientStream{pendingErr: fmt.Errorf("%w: not-authorized", ErrAuthRejected)}

	err := s.Authenticate(context.Background())

	assert.ErrorIs(t, err, ErrAuthRejected)
}

func TestClientStreamNotConnected(t *testing.T) {
	s := &clientStream{}

	assert.Error(t, s.Authenticate(context.Background()))
	assert.Error(t, s.Send(context.Background(), jid.MustParse("bob@example.com"), "hi"))
	assert.NoError(t, s.Disconnect())
}

func TestClientStreamConnectRespectsContext(t *testing.T) {
	// Nothing answers on a listener that never accepts, so NewClient blocks
	// until the context gives up.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewClientStream(StreamOptions{
		Address: ln.Addr().String(),
		Sender:  jid.MustParse("notifier@localhost"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Connect(ctx), context.Canceled)
}
