package rediskeys

import (
	"fmt"

	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/crypto"
)

// EventDedupKey generates the Redis key marking a review event as handled.
func EventDedupKey(eventID string) string {
	return fmt.Sprintf("event_dedup:%s", eventID)
}

// EventDedupKeyFromPayload generates the dedup key for an event without an id,
// keyed on the digest of its raw payload.
func EventDedupKeyFromPayload(payload []byte) string {
	return fmt.Sprintf("event_dedup:sha256:%s", crypto.Sha256Hex(payload))
}
