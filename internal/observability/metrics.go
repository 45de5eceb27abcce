package observability

import (
	"strconv"
	"sync"
	"time"
)

// Intake outcome labels.
const (
	IntakeOutcomeCreated     = "created"
	IntakeOutcomeRateLimited = "rate_limited"
	IntakeOutcomeRejected    = "rejected"
	IntakeOutcomeFailed      = "failed"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	intakeCount  map[string]int64
	scanRuns     int64
	scanReports  int64
	scanFailures int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		intakeCount:  make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordIntake tracks the outcome of a ticket creation attempt.
func (m *Metrics) RecordIntake(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intakeCount[outcome]++
}

// RecordScanRun accumulates misuse scan outcomes.
func (m *Metrics) RecordScanRun(reports, failures int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanRuns++
	m.scanReports += int64(reports)
	m.scanFailures += int64(failures)
}
