package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// EventIDKey is the context key for the id of the review event being handled.
	EventIDKey contextKey = "event_id"

	// EventTypeKey is the context key for the review event type (e.g. review.published).
	EventTypeKey contextKey = "event_type"

	// ActorKey is the context key for the username of the user who triggered the event.
	ActorKey contextKey = "actor"

	// ReviewRequestIDKey is the context key for the display id of the review request.
	ReviewRequestIDKey contextKey = "review_request_id"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
