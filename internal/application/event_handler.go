package application

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/metrics"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/contextkeys"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/rediskeys"
)

// EventHandler routes decoded review events to the Notifier, skipping events
// that were already handled.
type EventHandler struct {
	logger   domain.Logger
	notifier *Notifier
	dedup    domain.EventDeduplicator
	dedupTTL time.Duration
	validate *validator.Validate
}

// NewEventHandler creates an EventHandler. A nil dedup or a zero ttl disables
// duplicate suppression.
func NewEventHandler(logger domain.Logger, notifier *Notifier, dedup domain.EventDeduplicator, dedupTTL time.Duration) *EventHandler {
	return &EventHandler{
		logger:   logger,
		notifier: notifier,
		dedup:    dedup,
		dedupTTL: dedupTTL,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Handle processes one event. raw is the undecoded payload, used to key events
// that carry no id. The returned error only describes why an event was
// rejected; delivery failures are never returned.
func (h *EventHandler) Handle(ctx context.Context, payload *domain.ReviewEventPayload, raw []byte) error {
	ctx = context.WithValue(ctx, contextkeys.EventTypeKey, string(payload.EventType))
	if payload.EventID != "" {
		ctx = context.WithValue(ctx, contextkeys.EventIDKey, payload.EventID)
	}
	if payload.Actor.Username != "" {
		ctx = context.WithValue(ctx, contextkeys.ActorKey, payload.Actor.Username)
	}

	if !payload.EventType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownEventType, payload.EventType)
	}
	metrics.IncrementEventsReceived(string(payload.EventType))

	if err := h.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}

	if h.isDuplicate(ctx, payload, raw) {
		metrics.IncrementEventsDuplicate()
		h.logger.Info(ctx, "Skipping review event that was already handled")
		return nil
	}

	switch payload.EventType {
	case domain.EventReviewRequestPublished:
		h.notifier.ReviewRequestPublished(ctx, payload.Actor, payload.ReviewRequest, payload.ChangeDescription)
	case domain.EventReviewRequestReopened:
		h.notifier.ReviewRequestReopened(ctx, payload.Actor, payload.ReviewRequest)
	case domain.EventReviewRequestClosed:
		h.notifier.ReviewRequestClosed(ctx, payload.Actor, payload.ReviewRequest)
	case domain.EventReviewPublished:
		h.notifier.ReviewPublished(ctx, payload.Actor, payload.Review)
	case domain.EventReplyPublished:
		h.notifier.ReplyPublished(ctx, payload.Actor, payload.Reply)
	}
	return nil
}

// isDuplicate claims the event in the deduplicator before any delivery. A
// crash mid fan-out leaves the claim held, so a redelivery skips the rest of
// the audience until the TTL expires. Errors fail open: a possible duplicate
// message is better than a lost one.
func (h *EventHandler) isDuplicate(ctx context.Context, payload *domain.ReviewEventPayload, raw []byte) bool {
	if h.dedup == nil || h.dedupTTL <= 0 {
		return false
	}

	key := rediskeys.EventDedupKeyFromPayload(raw)
	if payload.EventID != "" {
		key = rediskeys.EventDedupKey(payload.EventID)
	}

	first, err := h.dedup.Claim(ctx, key, h.dedupTTL)
	if err != nil {
		h.logger.Warn(ctx, "Event dedup check failed; processing event anyway", "key", key, "error", err)
		return false
	}
	return !first
}
