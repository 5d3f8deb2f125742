package monitoring

import (
	"sync"
	"time"
)

// MetricsCollector accumulates service counters in memory. Everything
// is guarded by one RWMutex; the numbers reset on restart.
type MetricsCollector struct {
	mu        sync.RWMutex
	startTime time.Time

	requestCount    map[string]int64
	requestDuration map[string]time.Duration

	runsStarted   int64
	runsCompleted int64
	runsFailed    int64

	candidatesConsidered int64
	candidatesAccepted   int64
	candidatesRejected   int64
	strategyFailures     int64
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:       time.Now(),
		requestCount:    make(map[string]int64),
		requestDuration: make(map[string]time.Duration),
	}
}

// RecordRequest tracks one HTTP request against its route.
func (m *MetricsCollector) RecordRequest(route string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requestCount[route]++
	m.requestDuration[route] += duration
}

// RecordRunStart counts a discovery run beginning.
func (m *MetricsCollector) RecordRunStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runsStarted++
}

// RecordRunComplete folds one finished run's counters in.
func (m *MetricsCollector) RecordRunComplete(considered, accepted, rejected, strategyFailures int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runsCompleted++
	m.candidatesConsidered += int64(considered)
	m.candidatesAccepted += int64(accepted)
	m.candidatesRejected += int64(rejected)
	m.strategyFailures += int64(strategyFailures)
}

// RecordRunFailure counts a run that surfaced an error.
func (m *MetricsCollector) RecordRunFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runsFailed++
}

// Snapshot returns a point-in-time copy of every counter, shaped for
// the metrics endpoint.
func (m *MetricsCollector) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requests := make(map[string]interface{}, len(m.requestCount))
	for route, count := range m.requestCount {
		avg := time.Duration(0)
		if count > 0 {
			avg = m.requestDuration[route] / time.Duration(count)
		}
		requests[route] = map[string]interface{}{
			"count":       count,
			"avg_latency": avg.String(),
		}
	}

	return map[string]interface{}{
		"uptime": time.Since(m.startTime).String(),
		"requests": requests,
		"discovery": map[string]interface{}{
			"runs_started":          m.runsStarted,
			"runs_completed":        m.runsCompleted,
			"runs_failed":           m.runsFailed,
			"candidates_considered": m.candidatesConsidered,
			"candidates_accepted":   m.candidatesAccepted,
			"candidates_rejected":   m.candidatesRejected,
			"strategy_failures":     m.strategyFailures,
		},
	}
}
