package servant

import (
	"time"
)

// MetricsCollector receives supervision and worker events
type MetricsCollector interface {
	// StateTransition records a supervisor moving between lifecycle states
	StateTransition(name string, from, to State)

	// ReadyWaitDuration records how long a readiness wait took and its outcome
	ReadyWaitDuration(name string, duration time.Duration, ready bool)

	// TerminationDuration records how long a worker took to exit
	TerminationDuration(name string, duration time.Duration)

	// CallDuration records a supervisor-side RPC
	CallDuration(name, fn string, duration time.Duration, err error)

	// RequestServed records a request handled by a worker
	RequestServed(route string, status int, duration time.Duration)
}

// noopMetricsCollector is a no-op implementation of MetricsCollector
type noopMetricsCollector struct{}

func (n *noopMetricsCollector) StateTransition(name string, from, to State)                      {}
func (n *noopMetricsCollector) ReadyWaitDuration(name string, duration time.Duration, ready bool) {}
func (n *noopMetricsCollector) TerminationDuration(name string, duration time.Duration)         {}
func (n *noopMetricsCollector) CallDuration(name, fn string, duration time.Duration, err error) {}
func (n *noopMetricsCollector) RequestServed(route string, status int, duration time.Duration)  {}

// NewNoopMetricsCollector creates a no-op metrics collector
func NewNoopMetricsCollector() MetricsCollector {
	return &noopMetricsCollector{}
}
