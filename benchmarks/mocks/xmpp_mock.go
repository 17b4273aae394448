package mocks

import (
	"context"
	"sync"

	"mellium.im/xmpp/jid"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/adapters/xmpp"
)

// MockStream implements xmpp.Stream. Each *Err field makes the matching call
// fail; Block* fields make it wait until the context is done instead.
type MockStream struct {
	ConnectErr    error
	AuthErr       error
	SendErr       error
	DisconnectErr error

	BlockConnect bool
	BlockSend    bool

	Opts     xmpp.StreamOptions
	Calls    []string
	SentTo   []jid.JID
	SentBody []string

	mu sync.Mutex
}

func (s *MockStream) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, call)
}

// Connect implements xmpp.Stream
func (s *MockStream) Connect(ctx context.Context) error {
	s.record("connect")
	if s.BlockConnect {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.ConnectErr
}

// Authenticate implements xmpp.Stream
func (s *MockStream) Authenticate(ctx context.Context) error {
	s.record("authenticate")
	return s.AuthErr
}

// Send implements xmpp.Stream
func (s *MockStream) Send(ctx context.Context, to jid.JID, body string) error {
	s.record("send")
	if s.BlockSend {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.SendErr != nil {
		return s.SendErr
	}
	s.mu.Lock()
	s.SentTo = append(s.SentTo, to)
	s.SentBody = append(s.SentBody, body)
	s.mu.Unlock()
	return nil
}

// Disconnect implements xmpp.Stream
func (s *MockStream) Disconnect() error {
	s.record("disconnect")
	return s.DisconnectErr
}

// GetCalls returns a copy of the recorded call names.
func (s *MockStream) GetCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]string, len(s.Calls))
	copy(calls, s.Calls)
	return calls
}

// MockStreamFactory hands out streams built by Template and remembers them.
type MockStreamFactory struct {
	// Template is called for every new stream; nil yields a stream that always succeeds.
	Template func(opts xmpp.StreamOptions) *MockStream

	streams []*MockStream
	mu      sync.Mutex
}

// NewStream satisfies xmpp.StreamFactory.
func (f *MockStreamFactory) NewStream(opts xmpp.StreamOptions) xmpp.Stream {
	s := &MockStream{}
	if f.Template != nil {
		s = f.Template(opts)
	}
	s.Opts = opts

	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s
}

// Streams returns every stream created so far.
func (f *MockStreamFactory) Streams() []*MockStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*MockStream, len(f.streams))
	copy(out, f.streams)
	return out
}
