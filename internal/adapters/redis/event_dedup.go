package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

// EventDeduplicatorAdapter implements domain.EventDeduplicator with SETNX, so
// that replicas sharing a queue group and JetStream redeliveries never notify
// twice for the same event.
type EventDeduplicatorAdapter struct {
	redisClient redis.UniversalClient
	logger      domain.Logger
	owner       string // written as the key value to show which instance handled the event
}

// NewEventDeduplicatorAdapter creates a new EventDeduplicatorAdapter.
func NewEventDeduplicatorAdapter(redisClient redis.UniversalClient, logger domain.Logger, owner string) *EventDeduplicatorAdapter {
	if redisClient == nil {
		logger.Error(context.Background(), "Redis client is nil in NewEventDeduplicatorAdapter", "error", "nil_redis_client")
	}
	return &EventDeduplicatorAdapter{
		redisClient: redisClient,
		logger:      logger,
		owner:       owner,
	}
}

// Claim returns true if key was not set yet. The key expires after ttl.
func (a *EventDeduplicatorAdapter) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := a.redisClient.SetNX(ctx, key, a.owner, ttl).Result()
	if err != nil {
		a.logger.Error(ctx, "Redis SETNX failed", "key", key, "error", err.Error())
		return false, fmt.Errorf("redis SETNX for key '%s' failed: %w", key, err)
	}

	if !claimed {
		holder, getErr := a.redisClient.Get(ctx, key).Result()
		switch {
		case getErr == redis.Nil:
			a.logger.Debug(ctx, "Dedup key expired between SETNX and GET", "key", key)
		case getErr != nil:
			a.logger.Debug(ctx, "Failed to read dedup key holder", "key", key, "error", getErr.Error())
		default:
			a.logger.Debug(ctx, "Event already claimed", "key", key, "holder", holder)
		}
	}
	return claimed, nil
}
