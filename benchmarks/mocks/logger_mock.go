package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

// LogEntry is one recorded log call.
type LogEntry struct {
	Level     string
	Message   string
	Fields    map[string]interface{}
	Timestamp time.Time
}

type logStore struct {
	entries []LogEntry
	mu      sync.RWMutex

	infoCount  int64
	warnCount  int64
	errorCount int64
	debugCount int64
}

// MockLogger implements domain.Logger and records every entry.
// Loggers derived through With share the same store.
type MockLogger struct {
	store  *logStore
	fields []any
}

// NewMockLogger creates a new mock logger
func NewMockLogger() *MockLogger {
	return &MockLogger{store: &logStore{}}
}

// Info implements domain.Logger
func (m *MockLogger) Info(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.store.infoCount, 1)
	m.addLogEntry("INFO", msg, fields...)
}

// Warn implements domain.Logger
func (m *MockLogger) Warn(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.store.warnCount, 1)
	m.addLogEntry("WARN", msg, fields...)
}

// Error implements domain.Logger
func (m *MockLogger) Error(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.store.errorCount, 1)
	m.addLogEntry("ERROR", msg, fields...)
}

// Debug implements domain.Logger
func (m *MockLogger) Debug(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.store.debugCount, 1)
	m.addLogEntry("DEBUG", msg, fields...)
}

// Fatal implements domain.Logger. It records the entry and does not exit.
func (m *MockLogger) Fatal(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.store.errorCount, 1)
	m.addLogEntry("FATAL", msg, fields...)
}

// With implements domain.Logger
func (m *MockLogger) With(fields ...any) domain.Logger {
	merged := make([]any, 0, len(m.fields)+len(fields))
	merged = append(merged, m.fields...)
	merged = append(merged, fields...)
	return &MockLogger{store: m.store, fields: merged}
}

func (m *MockLogger) addLogEntry(level, msg string, fields ...any) {
	all := append(append([]any{}, m.fields...), fields...)
	fieldMap := make(map[string]interface{}, len(all)/2)
	for i := 0; i+1 < len(all); i += 2 {
		if key, ok := all[i].(string); ok {
			fieldMap[key] = all[i+1]
		}
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = append(m.store.entries, LogEntry{
		Level:     level,
		Message:   msg,
		Fields:    fieldMap,
		Timestamp: time.Now(),
	})
}

// GetLogEntries returns a copy of all log entries.
func (m *MockLogger) GetLogEntries() []LogEntry {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	entries := make([]LogEntry, len(m.store.entries))
	copy(entries, m.store.entries)
	return entries
}

// GetLogEntriesByLevel returns log entries filtered by level
func (m *MockLogger) GetLogEntriesByLevel(level string) []LogEntry {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	var filtered []LogEntry
	for _, entry := range m.store.entries {
		if entry.Level == level {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// FindEntry returns the first entry with the given level and message.
func (m *MockLogger) FindEntry(level, msg string) (LogEntry, bool) {
	for _, entry := range m.GetLogEntriesByLevel(level) {
		if entry.Message == msg {
			return entry, true
		}
	}
	return LogEntry{}, false
}

// GetMetrics returns current metrics for benchmark analysis
func (m *MockLogger) GetMetrics() (info, warn, error, debug int64) {
	return atomic.LoadInt64(&m.store.infoCount),
		atomic.LoadInt64(&m.store.warnCount),
		atomic.LoadInt64(&m.store.errorCount),
		atomic.LoadInt64(&m.store.debugCount)
}

// Reset clears all log entries and metrics
func (m *MockLogger) Reset() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.entries = nil
	atomic.StoreInt64(&m.store.infoCount, 0)
	atomic.StoreInt64(&m.store.warnCount, 0)
	atomic.StoreInt64(&m.store.errorCount, 0)
	atomic.StoreInt64(&m.store.debugCount, 0)
}

// NopLogger discards everything. Benchmarks use it to keep logging out of the numbers.
type NopLogger struct{}

func (NopLogger) Debug(context.Context, string, ...any) {}
func (NopLogger) Info(context.Context, string, ...any)  {}
func (NopLogger) Warn(context.Context, string, ...any)  {}
func (NopLogger) Error(context.Context, string, ...any) {}
func (NopLogger) Fatal(context.Context, string, ...any) {}
func (n NopLogger) With(...any) domain.Logger            { return n }
