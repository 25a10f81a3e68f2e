package multicast

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of a registry's counters.
type MetricsSnapshot struct {
	Invocations   int64 // Invoke and InvokeContext calls
	ObserverCalls int64 // action callouts across all invocations
	Pruned        int64 // slots reclaimed after their observer was collected
}

// Metrics counts registry activity. All methods are safe for concurrent use.
type Metrics struct {
	invocations   atomic.Int64
	observerCalls atomic.Int64
	pruned        atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordInvocation() {
	m.invocations.Add(1)
}

func (m *Metrics) RecordObserverCalls(delta int) {
	m.observerCalls.Add(int64(delta))
}

func (m *Metrics) RecordPruned(delta int) {
	m.pruned.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Invocations:   m.invocations.Load(),
		ObserverCalls: m.observerCalls.Load(),
		Pruned:        m.pruned.Load(),
	}
}
