package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/config"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/contextkeys"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/safego"
)

const requestIDHeader = "X-Request-ID"

// EventProcessor handles one decoded review event.
type EventProcessor interface {
	Handle(ctx context.Context, payload *domain.ReviewEventPayload, raw []byte) error
}

// ConsumerAdapter subscribes to review events on NATS JetStream and hands them
// to an EventProcessor one at a time.
type ConsumerAdapter struct {
	nc           *nats.Conn
	js           nats.JetStreamContext
	logger       domain.Logger
	cfgProvider  config.Provider
	processor    EventProcessor
	subscription *nats.Subscription
	mu           sync.Mutex
}

// NewConsumerAdapter connects to NATS and obtains a JetStream context.
func NewConsumerAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*ConsumerAdapter, func(), error) {
	cfg := cfgProvider.Get()
	natsCfg := cfg.NATS

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-consumer", cfg.App.ServiceName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			subject := ""
			if s != nil {
				subject = s.Subject
			}
			appLogger.Error(ctx, "NATS error", "subscription", subject, "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Error(ctx, "Failed to get JetStream context", "error", err.Error())
		nc.Close()
		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	adapter := &ConsumerAdapter{
		nc:          nc,
		js:          js,
		logger:      appLogger,
		cfgProvider: cfgProvider,
	}

	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		adapter.Close()
	}
	return adapter, cleanup, nil
}

// NatsConn returns the underlying NATS connection, for readiness checks.
func (a *ConsumerAdapter) NatsConn() *nats.Conn {
	return a.nc
}

// Close drains and closes the NATS connection.
func (a *ConsumerAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		}
	}
}

// ensureStream creates the configured stream when it does not exist yet.
func (a *ConsumerAdapter) ensureStream(ctx context.Context) error {
	natsCfg := a.cfgProvider.Get().NATS
	if natsCfg.StreamName == "" {
		return nil
	}
	_, err := a.js.StreamInfo(natsCfg.StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", natsCfg.StreamName, err)
	}
	_, err = a.js.AddStream(&nats.StreamConfig{
		Name:     natsCfg.StreamName,
		Subjects: []string{natsCfg.SubjectPrefix + ".>"},
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", natsCfg.StreamName, err)
	}
	a.logger.Info(ctx, "Created JetStream stream", "stream_name", natsCfg.StreamName)
	return nil
}

// Start subscribes to <subject_prefix>.> in the configured queue group.
func (a *ConsumerAdapter) Start(ctx context.Context, processor EventProcessor) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.subscription != nil {
		return fmt.Errorf("review event consumer already started")
	}
	if a.js == nil {
		return fmt.Errorf("JetStream context is not initialized")
	}
	if err := a.ensureStream(ctx); err != nil {
		return err
	}

	cfg := a.cfgProvider.Get()
	subject := cfg.NATS.SubjectPrefix + ".>"
	a.processor = processor

	sub, err := a.js.QueueSubscribe(
		subject,
		cfg.NATS.QueueGroup,
		a.handleMessage,
		nats.Durable(cfg.NATS.ConsumerName),
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.AckWait(time.Duration(cfg.App.NatsAckWaitSeconds)*time.Second),
		nats.MaxAckPending(cfg.App.NATSMaxAckPending),
	)
	if err != nil {
		a.logger.Error(ctx, "Failed to subscribe to review events", "subject", subject, "error", err.Error())
		return fmt.Errorf("failed to subscribe to NATS subject %s: %w", subject, err)
	}

	a.subscription = sub
	a.logger.Info(ctx, "Review event consumer started",
		"subject", subject,
		"queue_group", cfg.NATS.QueueGroup,
		"durable_name", cfg.NATS.ConsumerName)
	return nil
}

// Stop drains the subscription. Messages in flight are finished first.
func (a *ConsumerAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.subscription == nil {
		return nil
	}
	if err := a.subscription.Drain(); err != nil {
		a.logger.Error(context.Background(), "Error draining NATS subscription", "error", err.Error())
		return err
	}
	a.subscription = nil
	a.logger.Info(context.Background(), "Review event consumer stopped")
	return nil
}

func (a *ConsumerAdapter) handleMessage(msg *nats.Msg) {
	ctx := context.Background()
	if reqID := msg.Header.Get(requestIDHeader); reqID != "" {
		ctx = context.WithValue(ctx, contextkeys.RequestIDKey, reqID)
	}

	// Every outcome is acked: a malformed event will not get better on
	// redelivery and delivery failures are not retried.
	safego.Call(ctx, a.logger, "ReviewEventHandler", func() {
		a.processMessage(ctx, msg.Subject, msg.Data)
	})

	if err := msg.Ack(); err != nil {
		a.logger.Error(ctx, "Failed to ACK message", "subject", msg.Subject, "error", err.Error())
	}
}

// processMessage decodes one message and passes it on. Errors are logged here.
func (a *ConsumerAdapter) processMessage(ctx context.Context, subject string, data []byte) {
	startTime := time.Now()

	eventType, err := EventTypeFromSubject(a.cfgProvider.Get().NATS.SubjectPrefix, subject)
	if err != nil {
		a.logger.Error(ctx, "Invalid subject format", "subject", subject, "error", err.Error())
		return
	}

	var payload domain.ReviewEventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		a.logger.Error(ctx, "Failed to unmarshal review event payload", "subject", subject, "error", err.Error())
		return
	}
	if payload.EventType != "" && payload.EventType != eventType {
		a.logger.Warn(ctx, "Payload event_type disagrees with subject; using subject",
			"subject", subject, "payload_event_type", payload.EventType)
	}
	payload.EventType = eventType

	if err := a.processor.Handle(ctx, &payload, data); err != nil {
		a.logger.Error(ctx, "Rejected review event", "subject", subject, "error", err.Error())
		return
	}

	a.logger.Debug(ctx, "Review event processed",
		"subject", subject,
		"duration_ms", time.Since(startTime).Milliseconds())
}

// EventTypeFromSubject maps <prefix>.<object>.<action> to an event type.
func EventTypeFromSubject(prefix, subject string) (domain.EventType, error) {
	rest, ok := strings.CutPrefix(subject, prefix+".")
	if !ok {
		return "", fmt.Errorf("%w: subject %q is outside %q", domain.ErrUnknownEventType, subject, prefix)
	}
	eventType := domain.EventType(rest)
	if !eventType.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownEventType, rest)
	}
	return eventType, nil
}
