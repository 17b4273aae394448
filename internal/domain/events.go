package domain

// EventType names the review system event that triggered a notification.
type EventType string

const (
	EventReviewRequestPublished EventType = "review_request.published"
	EventReviewRequestReopened  EventType = "review_request.reopened"
	EventReviewRequestClosed    EventType = "review_request.closed"
	EventReviewPublished        EventType = "review.published"
	EventReplyPublished         EventType = "reply.published"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventReviewRequestPublished, EventReviewRequestReopened, EventReviewRequestClosed,
		EventReviewPublished, EventReplyPublished:
		return true
	}
	return false
}

// ReviewEventPayload is the JSON document published by the review system
// on reviewboard.events.<event_type>.
// Only the object matching EventType is expected to be set.
type ReviewEventPayload struct {
	EventID           string         `json:"event_id"`
	EventTime         string         `json:"event_time,omitempty"`
	EventType         EventType      `json:"event_type"`
	Actor             User           `json:"actor" validate:"required"`
	ReviewRequest     *ReviewRequest `json:"review_request,omitempty"`
	Review            *Review        `json:"review,omitempty"`
	Reply             *Reply         `json:"reply,omitempty"`
	ChangeDescription string         `json:"change_description,omitempty"`
}
