// Package metricstest provides a metrics backend that records the
// measurements in memory, for tests.
package metricstest

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zalando/traject/metrics"
)

// Keys of the recorded measurements.
const (
	KeyRouteLookup     = "route.lookup"
	KeyRoutingFailures = "route.error"
	KeyBadRequests     = "parameters.error.%s"
	KeyServe           = "serve.%s.%s.%s"
	KeyServeCount      = "serve.%s.%s.%s.%d"
)

// MockMetrics records the measurements. The zero value is ready to use.
type MockMetrics struct {
	mu sync.Mutex

	counters map[string]int64
	measures map[string][]time.Duration

	// When set, the durations are measured until Now.
	Now time.Time
}

var _ metrics.Metrics = (*MockMetrics)(nil)

// WithCounters calls f with the counters, holding the lock.
func (m *MockMetrics) WithCounters(f func(counters map[string]int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}

	f(m.counters)
}

// WithMeasures calls f with the measured durations, holding the lock.
func (m *MockMetrics) WithMeasures(f func(measures map[string][]time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.measures == nil {
		m.measures = make(map[string][]time.Duration)
	}

	f(m.measures)
}

// Counter returns the value of a counter.
func (m *MockMetrics) Counter(key string) (v int64) {
	m.WithCounters(func(c map[string]int64) { v = c[key] })
	return
}

// Measures returns how many durations were measured with a key.
func (m *MockMetrics) Measures(key string) (n int) {
	m.WithMeasures(func(ms map[string][]time.Duration) { n = len(ms[key]) })
	return
}

func (m *MockMetrics) measureSince(key string, start time.Time) {
	now := m.Now
	if now.IsZero() {
		now = time.Now()
	}

	m.WithMeasures(func(measures map[string][]time.Duration) {
		measures[key] = append(measures[key], now.Sub(start))
	})
}

func (m *MockMetrics) inc(key string) {
	m.WithCounters(func(counters map[string]int64) { counters[key]++ })
}

func (m *MockMetrics) MeasureRouteLookup(start time.Time) {
	m.measureSince(KeyRouteLookup, start)
}

func (m *MockMetrics) IncRoutingFailures() {
	m.inc(KeyRoutingFailures)
}

func (m *MockMetrics) IncBadRequests(app string) {
	m.inc(fmt.Sprintf(KeyBadRequests, app))
}

func (m *MockMetrics) MeasureServe(app, view, method string, code int, start time.Time) {
	m.measureSince(fmt.Sprintf(KeyServe, app, view, method), start)
	m.inc(fmt.Sprintf(KeyServeCount, app, view, method, code))
}

func (*MockMetrics) RegisterHandler(string, *http.ServeMux) {}
