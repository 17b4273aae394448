package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/contextkeys"
)

func newObserved(level zapcore.Level) (*ZapAdapter, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewZapAdapterFromLogger(zap.New(core)), logs
}

func TestContextFieldsAreAttached(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)
	ctx := context.WithValue(context.Background(), contextkeys.EventIDKey, "evt-1")
	ctx = context.WithValue(ctx, contextkeys.ActorKey, "alice")

	l.Info(ctx, "Dispatching notification", "recipients", []string{"bob"})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "alice", fields["actor"])
	assert.Equal(t, []interface{}{"bob"}, fields["recipients"])
	assert.NotContains(t, fields, "request_id")
}

func TestPairsToFieldsHandlesBadInput(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	l.Warn(context.Background(), "odd", 42, "value", "dangling")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "value", fields["invalid_key_0"])
	assert.Equal(t, "dangling", fields["orphan_field_2"])
}

func TestErrorFieldIsNamedError(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	l.Error(context.Background(), "Failed to send XMPP notification", "error", errors.New("connection refused"))

	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "connection refused", entry.ContextMap()["error"])
}

func TestLevelFiltering(t *testing.T) {
	l, logs := newObserved(zapcore.WarnLevel)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "hidden")
	l.Warn(ctx, "shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestWithKeepsFields(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	child := l.With("recipient", "bob@example.com")
	child.Debug(context.Background(), "XMPP session transition", "to", "authorized")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "bob@example.com", fields["recipient"])
	assert.Equal(t, "authorized", fields["to"])
}
