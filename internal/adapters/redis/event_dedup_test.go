package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/review-xmpp-notifier/benchmarks/mocks"
)

func newTestAdapter(t *testing.T) (*EventDeduplicatorAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewEventDeduplicatorAdapter(client, mocks.NewMockLogger(), "pod-a"), mr
}

func TestClaimFirstTimeOnly(t *testing.T) {
	a, mr := newTestAdapter(t)
	ctx := context.Background()

	first, err := a.Claim(ctx, "event_dedup:evt-1", time.Minute)
	require.NoError(t, err)
	again, err := a.Claim(ctx, "event_dedup:evt-1", time.Minute)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, again)
	holder, err := mr.Get("event_dedup:evt-1")
	require.NoError(t, err)
	assert.Equal(t, "pod-a", holder)
	assert.Equal(t, time.Minute, mr.TTL("event_dedup:evt-1"))
}

func TestClaimAfterExpiry(t *testing.T) {
	a, mr := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.Claim(ctx, "event_dedup:evt-2", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	claimed, err := a.Claim(ctx, "event_dedup:evt-2", time.Second)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimRedisDown(t *testing.T) {
	a, mr := newTestAdapter(t)
	mr.Close()

	claimed, err := a.Claim(context.Background(), "event_dedup:evt-3", time.Minute)

	assert.Error(t, err)
	assert.False(t, claimed)
}
