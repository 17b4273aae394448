package benchmarks

import (
	"context"
	"testing"

	"gitlab.com/timkado/api/review-xmpp-notifier/benchmarks/mocks"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/xmpp"
	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

// BenchmarkDispatcherSession measures the session state machine around a stream
// that completes instantly.
func BenchmarkDispatcherSession(b *testing.B) {
	factory := &mocks.MockStreamFactory{}
	dispatcher := xmpp.NewDispatcherWithStreams(mocks.NewMockConfigProvider(), mocks.NopLogger{}, factory.NewStream)
	recipient := domain.User{ID: 7, Username: "bench", IsActive: true}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := dispatcher.Send(ctx, recipient, "benchmark body"); err != nil {
			b.Fatalf("Send failed: %v", err)
		}
	}
}

// BenchmarkTransition measures the pure transition function.
func BenchmarkTransition(b *testing.B) {
	events := []xmpp.Event{xmpp.EventConnected, xmpp.EventAuthorized, xmpp.EventMessageSent, xmpp.EventDisconnected}
	for i := 0; i < b.N; i++ {
		state := xmpp.StateConnecting
		for _, e := range events {
			state, _ = xmpp.Transition(state, e)
		}
		if state != xmpp.StateDisconnected {
			b.Fatalf("unexpected final state %s", state)
		}
	}
}
