package servant

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics_StateTransitions(t *testing.T) {
	pm := NewPrometheusMetrics("test")

	pm.StateTransition("DemoService", StateResolving, StateSpawning)
	pm.StateTransition("DemoService", StateSpawning, StateAwaitingHealthy)
	pm.StateTransition("Other", StateResolving, StateAttached)

	expected := `
		# HELP test_state_transitions_total Total number of supervisor state transitions
		# TYPE test_state_transitions_total counter
		test_state_transitions_total{from_state="resolving",service="DemoService",to_state="spawning"} 1
		test_state_transitions_total{from_state="spawning",service="DemoService",to_state="awaiting-healthy"} 1
		test_state_transitions_total{from_state="resolving",service="Other",to_state="attached"} 1
	`
	err := testutil.GatherAndCompare(pm.Registry(), strings.NewReader(expected), "test_state_transitions_total")
	assert.NoError(t, err)
}

func TestPrometheusMetrics_Durations(t *testing.T) {
	pm := NewPrometheusMetrics("test")

	pm.ReadyWaitDuration("DemoService", 300*time.Millisecond, true)
	pm.ReadyWaitDuration("DemoService", 5*time.Second, false)
	pm.TerminationDuration("DemoService", 100*time.Millisecond)
	pm.CallDuration("DemoService", "anything", 10*time.Millisecond, nil)
	pm.CallDuration("DemoService", "anything", 10*time.Millisecond, errors.New("boom"))

	count, err := testutil.GatherAndCount(pm.Registry(),
		"test_ready_wait_duration_seconds",
		"test_termination_duration_seconds",
		"test_call_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestPrometheusMetrics_RequestsAndHandler(t *testing.T) {
	pm := NewPrometheusMetrics("")

	pm.RequestServed("/health", http.StatusOK, time.Millisecond)
	pm.RequestServed("/health", http.StatusOK, time.Millisecond)
	pm.RequestServed("/call/{func}", http.StatusInternalServerError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.requests.WithLabelValues("/health", "200")))

	rec := httptest.NewRecorder()
	pm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "servant_worker_requests_total")
}

func TestNoopMetricsCollector(t *testing.T) {
	m := NewNoopMetricsCollector()
	m.StateTransition("x", StateResolving, StateReady)
	m.ReadyWaitDuration("x", time.Second, true)
	m.TerminationDuration("x", time.Second)
	m.CallDuration("x", "f", time.Second, nil)
	m.RequestServed("/health", 200, time.Second)
}
