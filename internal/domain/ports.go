package domain

import (
	"context"
	"time"
)

// Messenger delivers a single message to a single user.
// Implementations return a *DeliveryError on failure.
type Messenger interface {
	Send(ctx context.Context, recipient User, body string) error
}

// BaseURLProvider returns the absolute site root, e.g. "https://reviews.example.com".
type BaseURLProvider interface {
	BaseURL() string
}

// EventDeduplicator records which events have already been handled so that
// redelivered events do not notify users twice.
type EventDeduplicator interface {
	// Claim returns true when the caller is the first to see key within ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
