package application

import (
	"context"
	"fmt"
	"strconv"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/metrics"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/contextkeys"
)

const (
	suppressedNotPublic = "not_public"
	suppressedDiscarded = "discarded"
	suppressedMalformed = "malformed"
)

// Notifier turns review events into XMPP messages for every interested user.
// None of its methods return errors: every failure is logged and counted.
type Notifier struct {
	logger    domain.Logger
	messenger domain.Messenger
	site      domain.BaseURLProvider
}

// NewNotifier creates a Notifier.
func NewNotifier(logger domain.Logger, messenger domain.Messenger, site domain.BaseURLProvider) *Notifier {
	return &Notifier{
		logger:    logger,
		messenger: messenger,
		site:      site,
	}
}

// ReviewRequestPublished notifies about a newly published review request or a
// new revision of it. changeDescription is only logged.
func (n *Notifier) ReviewRequestPublished(ctx context.Context, actor domain.User, rr *domain.ReviewRequest, changeDescription string) {
	if rr == nil {
		n.malformed(ctx, domain.EventReviewRequestPublished, "review_request missing")
		return
	}
	if changeDescription != "" {
		n.logger.Debug(ctx, "Review request published with change description", "change_description", changeDescription)
	}
	n.notify(ctx, domain.EventReviewRequestPublished, actor, rr, "published review request")
}

// ReviewRequestReopened notifies about a reopened review request.
func (n *Notifier) ReviewRequestReopened(ctx context.Context, actor domain.User, rr *domain.ReviewRequest) {
	if rr == nil {
		n.malformed(ctx, domain.EventReviewRequestReopened, "review_request missing")
		return
	}
	n.notify(ctx, domain.EventReviewRequestReopened, actor, rr, "reopened review request")
}

// ReviewRequestClosed notifies about a submitted review request. Unlike the
// other events it is allowed for requests that are not public, but never for
// discarded ones.
func (n *Notifier) ReviewRequestClosed(ctx context.Context, actor domain.User, rr *domain.ReviewRequest) {
	if rr == nil {
		n.malformed(ctx, domain.EventReviewRequestClosed, "review_request missing")
		return
	}
	n.notify(ctx, domain.EventReviewRequestClosed, actor, rr, "closed review request")
}

// ReviewPublished notifies about a review posted on a review request.
func (n *Notifier) ReviewPublished(ctx context.Context, actor domain.User, review *domain.Review) {
	if review == nil || review.ReviewRequest == nil {
		n.malformed(ctx, domain.EventReviewPublished, "review or its review_request missing")
		return
	}
	n.notify(ctx, domain.EventReviewPublished, actor, review.ReviewRequest, "reviewed request")
}

// ReplyPublished notifies about a reply to a review.
func (n *Notifier) ReplyPublished(ctx context.Context, actor domain.User, reply *domain.Reply) {
	if reply == nil || reply.BaseReplyTo == nil || reply.BaseReplyTo.ReviewRequest == nil {
		n.malformed(ctx, domain.EventReplyPublished, "reply, base review or review_request missing")
		return
	}
	n.notify(ctx, domain.EventReplyPublished, actor, reply.BaseReplyTo.ReviewRequest, "replied to review request")
}

// suppressReason returns why event must not be sent for rr, or "".
func suppressReason(event domain.EventType, rr *domain.ReviewRequest) string {
	if event == domain.EventReviewRequestClosed {
		if rr.Status == domain.StatusDiscarded {
			return suppressedDiscarded
		}
		return ""
	}
	if !rr.Public {
		return suppressedNotPublic
	}
	return ""
}

// FormatMessage builds the message body, e.g.
//
//	Jane Doe reviewed request #42: "Fix the frobnicator"
//	https://reviews.example.com/r/42/
func FormatMessage(actor domain.User, verb string, rr *domain.ReviewRequest, baseURL string) string {
	return fmt.Sprintf("%s %s #%d: \"%s\"\n%s%s",
		actor.DisplayName(), verb, rr.DisplayID(), rr.Summary, baseURL, rr.AbsoluteURL)
}

func (n *Notifier) notify(ctx context.Context, event domain.EventType, actor domain.User, rr *domain.ReviewRequest, verb string) {
	ctx = context.WithValue(ctx, contextkeys.ReviewRequestIDKey, strconv.FormatInt(rr.DisplayID(), 10))

	if reason := suppressReason(event, rr); reason != "" {
		metrics.IncrementSuppressed(string(event), reason)
		n.logger.Debug(ctx, "Notification suppressed", "event_type", event, "reason", reason)
		return
	}

	message := FormatMessage(actor, verb, rr, n.site.BaseURL())

	audience := ResolveAudience(rr)
	audience.Discard(actor)

	if audience.Len() == 0 {
		n.logger.Debug(ctx, "No recipients for notification", "event_type", event)
		return
	}
	n.logger.Info(ctx, "Dispatching notification", "event_type", event, "recipients", audience.Usernames())

	sent, failed := 0, 0
	for _, recipient := range audience.Users() {
		if err := n.messenger.Send(ctx, recipient, message); err != nil {
			failed++
			n.reportFailure(ctx, event, recipient, err)
			continue
		}
		sent++
		metrics.IncrementDelivery(string(event), "sent")
	}

	n.logger.Info(ctx, "Notification fan-out completed",
		"event_type", event,
		"success_count", sent,
		"fail_count", failed,
	)
}

func (n *Notifier) reportFailure(ctx context.Context, event domain.EventType, recipient domain.User, err error) {
	kind := domain.DeliveryErrorKind(err)
	if kind == "" {
		kind = domain.ErrKindTransport
	}
	metrics.IncrementDelivery(string(event), "failed")
	metrics.IncrementDeliveryFailure(string(kind))

	fields := []any{
		"event_type", event,
		"recipient", recipient.Username,
		"error_kind", kind,
		"error", err,
	}
	if kind == domain.ErrKindConfig {
		n.logger.Error(ctx, "XMPP notification cannot be sent: configuration is invalid", append(fields, "fatal_misconfiguration", true)...)
		return
	}
	n.logger.Error(ctx, "Failed to send XMPP notification", fields...)
}

func (n *Notifier) malformed(ctx context.Context, event domain.EventType, detail string) {
	metrics.IncrementSuppressed(string(event), suppressedMalformed)
	n.logger.Warn(ctx, "Ignoring malformed review event", "event_type", event, "detail", detail, "error", domain.ErrMalformedEvent)
}
