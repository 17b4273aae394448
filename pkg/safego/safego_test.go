package safego_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/review-xmpp-notifier/benchmarks/mocks"
	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/safego"
)

func TestCallRecoversPanic(t *testing.T) {
	logger := mocks.NewMockLogger()

	panicked := safego.Call(context.Background(), logger, "ReviewEventHandler", func() {
		panic("nil review request")
	})

	assert.True(t, panicked)
	entry, ok := logger.FindEntry("ERROR", "Panic recovered in ReviewEventHandler")
	require.True(t, ok)
	assert.Equal(t, "nil review request", entry.Fields["panic_info"])
	assert.NotEmpty(t, entry.Fields["stacktrace"])
}

func TestCallWithoutPanic(t *testing.T) {
	logger := mocks.NewMockLogger()
	ran := false

	panicked := safego.Call(context.Background(), logger, "noop", func() { ran = true })

	assert.False(t, panicked)
	assert.True(t, ran)
	assert.Empty(t, logger.GetLogEntries())
}

func TestExecuteRunsInBackground(t *testing.T) {
	logger := mocks.NewMockLogger()
	var wg sync.WaitGroup
	wg.Add(1)

	safego.Execute(context.Background(), logger, "worker", func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	assert.Eventually(t, func() bool {
		_, ok := logger.FindEntry("ERROR", "Panic recovered in worker")
		return ok
	}, time.Second, 10*time.Millisecond)
}
