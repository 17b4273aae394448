package utils

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/timkado/api/review-xmpp-notifier/internal/domain"
)

// ServiceMetrics tracks service-specific metrics during benchmarks
type ServiceMetrics struct {
	EventsProcessed   int64
	DuplicatesSkipped int64
	DeliveriesSent    int64
	DeliveriesFailed  int64
}

// NewServiceMetrics creates a new service metrics tracker
func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{}
}

// UpdateEventMetrics updates event intake metrics
func (sm *ServiceMetrics) UpdateEventMetrics(processed, duplicates int64) {
	atomic.AddInt64(&sm.EventsProcessed, processed)
	atomic.AddInt64(&sm.DuplicatesSkipped, duplicates)
}

// UpdateDeliveryMetrics updates delivery metrics
func (sm *ServiceMetrics) UpdateDeliveryMetrics(sent, failed int64) {
	atomic.AddInt64(&sm.DeliveriesSent, sent)
	atomic.AddInt64(&sm.DeliveriesFailed, failed)
}

// GetSnapshot returns a snapshot of current metrics
func (sm *ServiceMetrics) GetSnapshot() ServiceMetrics {
	return ServiceMetrics{
		EventsProcessed:   atomic.LoadInt64(&sm.EventsProcessed),
		DuplicatesSkipped: atomic.LoadInt64(&sm.DuplicatesSkipped),
		DeliveriesSent:    atomic.LoadInt64(&sm.DeliveriesSent),
		DeliveriesFailed:  atomic.LoadInt64(&sm.DeliveriesFailed),
	}
}

// BenchmarkRunner provides utilities for running benchmarks with metrics collection
type BenchmarkRunner struct {
	startTime      time.Time
	endTime        time.Time
	memStatsStart  runtime.MemStats
	memStatsEnd    runtime.MemStats
	goroutineStart int
	goroutineEnd   int

	operationCount int64
	errorCount     int64

	mu sync.RWMutex
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner() *BenchmarkRunner {
	return &BenchmarkRunner{}
}

// Start begins the benchmark measurement
func (br *BenchmarkRunner) Start() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.startTime = time.Now()
	br.goroutineStart = runtime.NumGoroutine()

	runtime.GC()
	runtime.ReadMemStats(&br.memStatsStart)
}

// Stop ends the benchmark measurement
func (br *BenchmarkRunner) Stop() {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.endTime = time.Now()
	br.goroutineEnd = runtime.NumGoroutine()

	runtime.GC()
	runtime.ReadMemStats(&br.memStatsEnd)
}

// IncrementOperations increments the operation counter
func (br *BenchmarkRunner) IncrementOperations(count int64) {
	atomic.AddInt64(&br.operationCount, count)
}

// IncrementErrors increments the error counter
func (br *BenchmarkRunner) IncrementErrors(count int64) {
	atomic.AddInt64(&br.errorCount, count)
}

// GetResults returns the benchmark results
func (br *BenchmarkRunner) GetResults() *BenchmarkResults {
	br.mu.RLock()
	defer br.mu.RUnlock()

	duration := br.endTime.Sub(br.startTime)
	operations := atomic.LoadInt64(&br.operationCount)

	var opsPerSecond float64
	if duration.Seconds() > 0 {
		opsPerSecond = float64(operations) / duration.Seconds()
	}

	return &BenchmarkResults{
		Duration:            duration,
		Operations:          operations,
		Errors:              atomic.LoadInt64(&br.errorCount),
		OperationsPerSecond: opsPerSecond,
		MemoryAllocated:     br.memStatsEnd.TotalAlloc - br.memStatsStart.TotalAlloc,
		MemoryAllocations:   br.memStatsEnd.Mallocs - br.memStatsStart.Mallocs,
		GoroutineStart:      br.goroutineStart,
		GoroutineEnd:        br.goroutineEnd,
		GoroutineLeak:       br.goroutineEnd - br.goroutineStart,
	}
}

// BenchmarkResults holds the results of a benchmark run
type BenchmarkResults struct {
	Duration            time.Duration `json:"duration_ns"`
	Operations          int64         `json:"operations"`
	Errors              int64         `json:"errors"`
	OperationsPerSecond float64       `json:"operations_per_second"`
	MemoryAllocated     uint64        `json:"memory_allocated_bytes"`
	MemoryAllocations   uint64        `json:"memory_allocations"`
	GoroutineStart      int           `json:"goroutine_start"`
	GoroutineEnd        int           `json:"goroutine_end"`
	GoroutineLeak       int           `json:"goroutine_leak"`
}

// String returns a human-readable representation of the results
func (br *BenchmarkResults) String() string {
	return fmt.Sprintf(
		"Duration: %v, Ops: %d, Errors: %d, Ops/sec: %.2f, Memory: %d bytes, Allocs: %d, Goroutines: %d->%d (leak: %d)",
		br.Duration,
		br.Operations,
		br.Errors,
		br.OperationsPerSecond,
		br.MemoryAllocated,
		br.MemoryAllocations,
		br.GoroutineStart,
		br.GoroutineEnd,
		br.GoroutineLeak,
	)
}

// ReviewEventGenerator creates review events with audiences of a chosen size.
type ReviewEventGenerator struct {
	eventCounter int64
}

// NewReviewEventGenerator creates a new review event generator
func NewReviewEventGenerator() *ReviewEventGenerator {
	return &ReviewEventGenerator{}
}

// Users returns n active users named <prefix>_<i>. IDs start at idBase.
func Users(prefix string, n int, idBase int64) []domain.User {
	users := make([]domain.User, n)
	for i := range users {
		users[i] = domain.User{
			ID:        idBase + int64(i),
			Username:  fmt.Sprintf("%s_%d", prefix, i),
			FirstName: "User",
			LastName:  fmt.Sprintf("%d", i),
			IsActive:  true,
		}
	}
	return users
}

// GenerateReviewRequest builds a public pending review request. The audience
// spreads recipients over every source, overlapping so dedup has work to do.
func (g *ReviewEventGenerator) GenerateReviewRequest(recipients int) *domain.ReviewRequest {
	id := atomic.AddInt64(&g.eventCounter, 1)
	people := Users("reviewer", recipients, 1000)

	third := recipients / 3
	stars := make([]domain.Subscription, 0, third)
	for _, u := range people[:third] {
		stars = append(stars, domain.Subscription{User: u})
	}

	return &domain.ReviewRequest{
		ID:           id,
		Public:       true,
		Status:       domain.StatusPending,
		Summary:      fmt.Sprintf("Benchmark change %d", id),
		Submitter:    domain.User{ID: 1, Username: "submitter", FirstName: "Sub", LastName: "Mitter", IsActive: true},
		AbsoluteURL:  fmt.Sprintf("/r/%d/", id),
		Participants: people[:third],
		TargetPeople: people[third:],
		TargetGroups: []domain.Group{{Name: "bench", Users: people[:2*third]}},
		StarredBy:    stars,
	}
}

// GeneratePayload wraps a fresh review request into an event of type t.
func (g *ReviewEventGenerator) GeneratePayload(t domain.EventType, recipients int) *domain.ReviewEventPayload {
	rr := g.GenerateReviewRequest(recipients)
	p := &domain.ReviewEventPayload{
		EventID:   fmt.Sprintf("bench_event_%d", rr.ID),
		EventTime: time.Now().Format(time.RFC3339),
		EventType: t,
		Actor:     domain.User{ID: 2, Username: "actor", FirstName: "Act", LastName: "Or", IsActive: true},
	}
	switch t {
	case domain.EventReviewPublished:
		p.Review = &domain.Review{ID: rr.ID, ReviewRequest: rr}
	case domain.EventReplyPublished:
		p.Reply = &domain.Reply{ID: rr.ID, BaseReplyTo: &domain.Review{ID: rr.ID, ReviewRequest: rr}}
	default:
		p.ReviewRequest = rr
	}
	return p
}

// SerializeEvent converts an event to JSON for NATS simulation
func (g *ReviewEventGenerator) SerializeEvent(event *domain.ReviewEventPayload) ([]byte, error) {
	return json.Marshal(event)
}
