package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockEventDeduplicator implements domain.EventDeduplicator in memory.
type MockEventDeduplicator struct {
	keys map[string]time.Time // key -> expiry
	err  error
	mu   sync.Mutex

	// Metrics for benchmarking
	ClaimAttempts  int64
	ClaimSuccesses int64
	ClaimConflicts int64
}

// NewMockEventDeduplicator creates a new mock deduplicator
func NewMockEventDeduplicator() *MockEventDeduplicator {
	return &MockEventDeduplicator{keys: make(map[string]time.Time)}
}

// SetError makes every following Claim fail with err, as an unreachable Redis would.
func (m *MockEventDeduplicator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Claim implements domain.EventDeduplicator
func (m *MockEventDeduplicator) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	atomic.AddInt64(&m.ClaimAttempts, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}

	now := time.Now()
	if expiry, exists := m.keys[key]; exists && now.Before(expiry) {
		atomic.AddInt64(&m.ClaimConflicts, 1)
		return false, nil
	}
	m.keys[key] = now.Add(ttl)
	atomic.AddInt64(&m.ClaimSuccesses, 1)
	return true, nil
}

// Keys returns the keys claimed so far, expired ones included.
func (m *MockEventDeduplicator) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.keys))
	for k := range m.keys {
		keys = append(keys, k)
	}
	return keys
}

// GetMetrics returns current metrics for benchmark analysis
func (m *MockEventDeduplicator) GetMetrics() (attempts, successes, conflicts int64) {
	return atomic.LoadInt64(&m.ClaimAttempts),
		atomic.LoadInt64(&m.ClaimSuccesses),
		atomic.LoadInt64(&m.ClaimConflicts)
}

// Reset clears all keys and metrics
func (m *MockEventDeduplicator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys = make(map[string]time.Time)
	m.err = nil
	atomic.StoreInt64(&m.ClaimAttempts, 0)
	atomic.StoreInt64(&m.ClaimSuccesses, 0)
	atomic.StoreInt64(&m.ClaimConflicts, 0)
}
