package xmpp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mellium.im/xmpp/jid"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/config"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/metrics"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

const (
	ClientName    = "Review Board XMPP Notification Client"
	ClientVersion = "0.1"

	defaultSessionTimeout = 15 * time.Second
)

// Dispatcher implements domain.Messenger. Every Send opens its own session,
// sends one message and disconnects; nothing is pooled or retried.
type Dispatcher struct {
	cfgProvider config.Provider
	logger      domain.Logger
	newStream   StreamFactory
}

// NewDispatcher creates a Dispatcher that talks to the server configured under xmpp.*.
func NewDispatcher(cfgProvider config.Provider, logger domain.Logger) *Dispatcher {
	return NewDispatcherWithStreams(cfgProvider, logger, NewClientStream)
}

// NewDispatcherWithStreams creates a Dispatcher using a custom stream factory.
func NewDispatcherWithStreams(cfgProvider config.Provider, logger domain.Logger, factory StreamFactory) *Dispatcher {
	d := &Dispatcher{
		cfgProvider: cfgProvider,
		logger:      logger,
		newStream:   factory,
	}

	ctx := context.Background()
	xc := cfgProvider.Get().XMPP
	logger.Info(ctx, "XMPP dispatcher initialized",
		"client", ClientName,
		"client_version", ClientVersion,
		"server", xc.Address(),
		"sender", xc.SenderJID,
		"starttls", xc.UseTLS,
	)
	if xc.UseTLS && xc.TLSSkipVerify {
		logger.Warn(ctx, "XMPP server certificate and identity will not be verified", "server", xc.Address())
	}
	if !xc.UseTLS {
		logger.Warn(ctx, "XMPP credentials will be sent without transport security", "server", xc.Address())
	}
	return d
}

// RecipientJID builds <username>@<sender domain>.
func RecipientJID(username string, sender jid.JID) (jid.JID, error) {
	if username == "" {
		return jid.JID{}, errors.New("empty username")
	}
	return jid.New(username, sender.Domainpart(), "")
}

// Send delivers body to recipient. Errors are *domain.DeliveryError.
func (d *Dispatcher) Send(ctx context.Context, recipient domain.User, body string) error {
	xc := d.cfgProvider.Get().XMPP

	if err := xc.Validate(); err != nil {
		return domain.NewDeliveryError(domain.ErrKindConfig, recipient.Username, "", err)
	}
	sender, err := jid.Parse(xc.SenderJID)
	if err != nil {
		return domain.NewDeliveryError(domain.ErrKindConfig, recipient.Username, "", fmt.Errorf("invalid xmpp.sender_jid %q: %w", xc.SenderJID, err))
	}
	if sender.Localpart() == "" {
		return domain.NewDeliveryError(domain.ErrKindConfig, recipient.Username, "", fmt.Errorf("xmpp.sender_jid %q has no local part", xc.SenderJID))
	}

	to, err := RecipientJID(recipient.Username, sender)
	if err != nil {
		return domain.NewDeliveryError(domain.ErrKindAddress, recipient.Username, "", err)
	}

	timeout := time.Duration(xc.SessionTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream := d.newStream(StreamOptions{
		Address:       xc.Address(),
		Sender:        sender,
		Password:      xc.SenderPassword,
		Resource:      xc.Resource,
		StartTLS:      xc.UseTLS,
		TLSSkipVerify: xc.TLSSkipVerify,
	})
	return d.run(ctx, stream, to, body)
}

// run drives one session through the state machine.
func (d *Dispatcher) run(ctx context.Context, stream Stream, to jid.JID, body string) error {
	sess := newSession()
	started := time.Now()
	log := d.logger.With("recipient", to.String())

	defer func() {
		if sess.state == StateFailed {
			// Best effort; the failure is already recorded.
			if cerr := stream.Disconnect(); cerr != nil {
				log.Debug(ctx, "Closing failed XMPP session returned an error", "error", cerr)
			}
		}
		metrics.ObserveXMPPSession(sess.state.String(), time.Since(started))
	}()

	step := func(e Event) Action {
		from := sess.state
		action := sess.apply(e)
		log.Debug(ctx, "XMPP session transition", "from", from.String(), "event", e.String(), "to", sess.state.String())
		return action
	}
	fail := func(kind domain.ErrorKind, cause error) error {
		stage := sess.state
		step(EventFailure)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(cause, ctxErr) {
			cause = fmt.Errorf("session timed out: %w", cause)
		}
		return domain.NewDeliveryError(kind, to.String(), stage.String(), cause)
	}

	if cerr := stream.Connect(ctx); cerr != nil {
		return fail(domain.ErrKindTransport, cerr)
	}
	action := step(EventConnected)

	for !sess.state.Terminal() {
		switch action {
		case ActionAuthenticate:
			if aerr := stream.Authenticate(ctx); aerr != nil {
				kind := domain.ErrKindTransport
				if errors.Is(aerr, ErrAuthRejected) {
					kind = domain.ErrKindAuth
				}
				return fail(kind, aerr)
			}
			action = step(EventAuthorized)

		case ActionSendMessage:
			if serr := stream.Send(ctx, to, body); serr != nil {
				return fail(domain.ErrKindTransport, serr)
			}
			action = step(EventMessageSent)

		case ActionDisconnect:
			// The message is already on the wire; a close error does not undo it.
			if derr := stream.Disconnect(); derr != nil {
				log.Warn(ctx, "XMPP disconnect returned an error after message was sent", "error", derr)
			}
			action = step(EventDisconnected)

		default:
			return fail(domain.ErrKindTransport, fmt.Errorf("no action for state %s", sess.state))
		}
	}

	log.Debug(ctx, "XMPP notification delivered", "duration_ms", time.Since(started).Milliseconds())
	return nil
}
