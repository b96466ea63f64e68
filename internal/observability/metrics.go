package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates counters for chat runs and capability invocations.
type Metrics struct {
	mu sync.Mutex

	runTotal   atomic.Int64
	runFailed  atomic.Int64
	tokensSent atomic.Int64
	capMetrics map[string]*CapabilityMetrics
}

// CapabilityMetrics counts invocations of one capability.
type CapabilityMetrics struct {
	invocations   atomic.Int64
	failures      atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{capMetrics: make(map[string]*CapabilityMetrics)}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the process-wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordRun records a started agent run.
func (m *Metrics) RecordRun() {
	m.runTotal.Add(1)
}

// RecordRunFailure records a failed agent run.
func (m *Metrics) RecordRunFailure() {
	m.runFailed.Add(1)
}

// RecordToken records one streamed answer token.
func (m *Metrics) RecordToken() {
	m.tokensSent.Add(1)
}

// RecordInvocation records a capability invocation with its outcome.
func (m *Metrics) RecordInvocation(capability string, duration time.Duration, failed bool) {
	cm := m.capability(capability)
	cm.invocations.Add(1)
	cm.totalDuration.Add(duration.Milliseconds())
	if failed {
		cm.failures.Add(1)
	}
}

func (m *Metrics) capability(name string) *CapabilityMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	cm, ok := m.capMetrics[name]
	if !ok {
		cm = &CapabilityMetrics{}
		m.capMetrics[name] = cm
	}
	return cm
}

// RunTotal returns the number of agent runs started.
func (m *Metrics) RunTotal() int64 { return m.runTotal.Load() }

// RunFailed returns the number of failed agent runs.
func (m *Metrics) RunFailed() int64 { return m.runFailed.Load() }

// TokensSent returns the number of streamed tokens.
func (m *Metrics) TokensSent() int64 { return m.tokensSent.Load() }

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	caps := make(map[string]CapabilitySnapshot, len(m.capMetrics))
	for name, cm := range m.capMetrics {
		count := cm.invocations.Load()
		var avg int64
		if count > 0 {
			avg = cm.totalDuration.Load() / count
		}
		caps[name] = CapabilitySnapshot{
			Invocations: count,
			Failures:    cm.failures.Load(),
			AvgDuration: avg,
		}
	}
	return &MetricsSnapshot{
		RunTotal:     m.runTotal.Load(),
		RunFailed:    m.runFailed.Load(),
		TokensSent:   m.tokensSent.Load(),
		Capabilities: caps,
	}
}

// Reset clears all counters. Used in tests.
func (m *Metrics) Reset() {
	m.runTotal.Store(0)
	m.runFailed.Store(0)
	m.tokensSent.Store(0)
	m.mu.Lock()
	m.capMetrics = make(map[string]*CapabilityMetrics)
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time view of the collector.
type MetricsSnapshot struct {
	RunTotal     int64
	RunFailed    int64
	TokensSent   int64
	Capabilities map[string]CapabilitySnapshot
}

// CapabilitySnapshot summarizes one capability's invocation history.
type CapabilitySnapshot struct {
	Invocations int64
	Failures    int64
	AvgDuration int64
}

// SuccessRate returns the run success rate as a percentage.
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RunTotal == 0 {
		return 100.0
	}
	return float64(s.RunTotal-s.RunFailed) / float64(s.RunTotal) * 100.0
}
