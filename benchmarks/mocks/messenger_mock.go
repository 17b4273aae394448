package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

// SentMessage is one recorded Send call.
type SentMessage struct {
	Recipient domain.User
	Body      string
	SentAt    time.Time
}

// MockMessenger implements domain.Messenger and records every attempt.
type MockMessenger struct {
	sent     []SentMessage
	failures map[string]error // by username
	latency  time.Duration
	mu       sync.RWMutex

	// Metrics for benchmarking
	SendAttempts  int64
	SendSuccesses int64
	SendFailures  int64
}

// NewMockMessenger creates a new mock messenger
func NewMockMessenger() *MockMessenger {
	return &MockMessenger{failures: make(map[string]error)}
}

// FailFor makes every Send to username return err.
func (m *MockMessenger) FailFor(username string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[username] = err
}

// SetLatency simulates the time one XMPP session takes.
func (m *MockMessenger) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Send implements domain.Messenger
func (m *MockMessenger) Send(ctx context.Context, recipient domain.User, body string) error {
	atomic.AddInt64(&m.SendAttempts, 1)

	m.mu.RLock()
	latency := m.latency
	failErr := m.failures[recipient.Username]
	m.mu.RUnlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			atomic.AddInt64(&m.SendFailures, 1)
			return ctx.Err()
		}
	}

	m.mu.Lock()
	m.sent = append(m.sent, SentMessage{Recipient: recipient, Body: body, SentAt: time.Now()})
	m.mu.Unlock()

	if failErr != nil {
		atomic.AddInt64(&m.SendFailures, 1)
		return failErr
	}
	atomic.AddInt64(&m.SendSuccesses, 1)
	return nil
}

// GetSent returns a copy of every attempted message, failed ones included.
func (m *MockMessenger) GetSent() []SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent := make([]SentMessage, len(m.sent))
	copy(sent, m.sent)
	return sent
}

// Recipients returns the usernames in the order they were attempted.
func (m *MockMessenger) Recipients() []string {
	sent := m.GetSent()
	names := make([]string, len(sent))
	for i, s := range sent {
		names[i] = s.Recipient.Username
	}
	return names
}

// GetMetrics returns current metrics for benchmark analysis
func (m *MockMessenger) GetMetrics() (attempts, successes, failures int64) {
	return atomic.LoadInt64(&m.SendAttempts),
		atomic.LoadInt64(&m.SendSuccesses),
		atomic.LoadInt64(&m.SendFailures)
}

// Reset clears recorded messages and metrics. Failure rules are kept.
func (m *MockMessenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = nil
	atomic.StoreInt64(&m.SendAttempts, 0)
	atomic.StoreInt64(&m.SendSuccesses, 0)
	atomic.StoreInt64(&m.SendFailures, 0)
}

// StaticBaseURL implements domain.BaseURLProvider.
type StaticBaseURL string

// BaseURL implements domain.BaseURLProvider
func (s StaticBaseURL) BaseURL() string {
	return string(s)
}
