package xmpp_test

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mellium.im/xmpp/jid"

	"gitlab.com/timkado/api/review-xmpp-notifier/benchmarks/mocks"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/config"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/xmpp"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

const serverStreamHeader = "<?xml version='1.0'?><stream:stream xmlns='jabber:client' " +
	"xmlns:stream='http://etherx.jabber.org/streams' id='s1' from='example.com' version='1.0'>"

const plainMechanisms = "<mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms>"

const saslNotAuthorized = "<failure xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><not-authorized/></failure>"

// serveXMPP accepts a single connection on a loopback listener and hands it to script.
func serveXMPP(t *testing.T, script func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
		script(conn)
	}()
	return ln.Addr().String()
}

// awaitClient reads from conn until marker has been seen.
func awaitClient(conn net.Conn, marker string) bool {
	var seen strings.Builder
	buf := make([]byte, 1024)
	for !strings.Contains(seen.String(), marker) {
		n, err := conn.Read(buf)
		if err != nil {
			return false
		}
		seen.Write(buf[:n])
	}
	return true
}

func rejectCredentials(conn net.Conn) {
	if !awaitClient(conn, "<stream:stream") {
		return
	}
	_, _ = conn.Write([]byte(serverStreamHeader + "<stream:features>" + plainMechanisms + "</stream:features>"))
	if !awaitClient(conn, "</auth>") {
		return
	}
	_, _ = conn.Write([]byte(saslNotAuthorized))
}

// untrustedStartTLS offers STARTTLS and then presents a certificate no client trusts.
func untrustedStartTLS(cert tls.Certificate) func(conn net.Conn) {
	return func(conn net.Conn) {
		if !awaitClient(conn, "<stream:stream") {
			return
		}
		_, _ = conn.Write([]byte(serverStreamHeader + "<stream:features>" +
			"<starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'><required/></starttls>" +
			plainMechanisms + "</stream:features>"))
		if !awaitClient(conn, "<starttls") {
			return
		}
		_, _ = conn.Write([]byte("<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>"))
		_ = tls.Server(conn, &tls.Config{Certificates: []tls.Certificate{cert}}).Handshake()
	}
}

func selfSignedCertificate(t *testing.T) tls.Certificate {
	t.Helper()
	srv := httptest.NewUnstartedServer(nil)
	srv.StartTLS()
	defer srv.Close()
	require.NotEmpty(t, srv.TLS.Certificates)
	return srv.TLS.Certificates[0]
}

func dispatcherFor(t *testing.T, addr string, useTLS bool) *xmpp.Dispatcher {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := mocks.NewMockConfigProvider()
	cfg.UpdateXMPP(func(x *config.XMPPConfig) {
		x.Host = host
		x.Port = port
		x.UseTLS = useTLS
		x.TLSSkipVerify = false
		x.SessionTimeoutSeconds = 5
	})
	return xmpp.NewDispatcherWithStreams(cfg, mocks.NewMockLogger(), xmpp.NewClientStream)
}

func TestClientStreamReportsRejectedCredentialsOnAuthenticate(t *testing.T) {
	addr := serveXMPP(t, rejectCredentials)
	s := xmpp.NewClientStream(xmpp.StreamOptions{
		Address:  addr,
		Sender:   jid.MustParse("notifier@example.com"),
		Password: "wrong",
		Resource: "review-notifier",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Connect(ctx))
	err := s.Authenticate(ctx)

	assert.ErrorIs(t, err, xmpp.ErrAuthRejected)
	assert.NoError(t, s.Disconnect())
}

func TestClientStreamConnectFailsWhenServerHangsUp(t *testing.T) {
	addr := serveXMPP(t, func(net.Conn) {})
	s := xmpp.NewClientStream(xmpp.StreamOptions{
		Address: addr,
		Sender:  jid.MustParse("notifier@example.com"),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Connect(ctx)

	require.Error(t, err)
	assert.NotErrorIs(t, err, xmpp.ErrAuthRejected)
}

func TestSendOverRealStreamClassifiesRejectedCredentialsAsAuth(t *testing.T) {
	d := dispatcherFor(t, serveXMPP(t, rejectCredentials), false)

	err := d.Send(context.Background(), bob, "hello")

	var de *domain.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrKindAuth, de.Kind)
	assert.Equal(t, "authenticating", de.Stage)
}

func TestSendOverRealStreamClassifiesUntrustedCertificateAsTransport(t *testing.T) {
	d := dispatcherFor(t, serveXMPP(t, untrustedStartTLS(selfSignedCertificate(t))), true)

	err := d.Send(context.Background(), bob, "hello")

	var de *domain.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.ErrKindTransport, de.Kind)
	assert.Equal(t, "connecting", de.Stage)
	assert.NotErrorIs(t, err, xmpp.ErrAuthRejected)
}
