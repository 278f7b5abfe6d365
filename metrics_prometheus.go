package servant

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMetricsNamespace prefixes every exported metric
const DefaultMetricsNamespace = "servant"

// PrometheusMetrics implements MetricsCollector on a private Prometheus registry
type PrometheusMetrics struct {
	stateTransitions    *prometheus.CounterVec
	readyWait           *prometheus.HistogramVec
	terminationDuration *prometheus.HistogramVec
	callDuration        *prometheus.HistogramVec
	requests            *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a collector whose metrics live under namespace
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}

	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
	}

	pm.stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of supervisor state transitions",
		},
		[]string{"service", "from_state", "to_state"},
	)

	pm.readyWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ready_wait_duration_seconds",
			Help:      "Time spent waiting for spawned workers to answer health checks",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"service", "ready"},
	)

	pm.terminationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "termination_duration_seconds",
			Help:      "Time between interrupting a worker and its exit",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	pm.callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of RPC calls issued to workers",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "func", "status"},
	)

	pm.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_requests_total",
			Help:      "Total number of requests served by the worker",
		},
		[]string{"route", "code"},
	)

	pm.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_request_duration_seconds",
			Help:      "Duration of requests served by the worker",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	pm.registry.MustRegister(
		pm.stateTransitions,
		pm.readyWait,
		pm.terminationDuration,
		pm.callDuration,
		pm.requests,
		pm.requestDuration,
	)

	return pm
}

// StateTransition implements MetricsCollector
func (pm *PrometheusMetrics) StateTransition(name string, from, to State) {
	pm.stateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
}

// ReadyWaitDuration implements MetricsCollector
func (pm *PrometheusMetrics) ReadyWaitDuration(name string, duration time.Duration, ready bool) {
	pm.readyWait.WithLabelValues(name, strconv.FormatBool(ready)).Observe(duration.Seconds())
}

// TerminationDuration implements MetricsCollector
func (pm *PrometheusMetrics) TerminationDuration(name string, duration time.Duration) {
	pm.terminationDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// CallDuration implements MetricsCollector
func (pm *PrometheusMetrics) CallDuration(name, fn string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pm.callDuration.WithLabelValues(name, fn, status).Observe(duration.Seconds())
}

// RequestServed implements MetricsCollector
func (pm *PrometheusMetrics) RequestServed(route string, status int, duration time.Duration) {
	pm.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	pm.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Registry returns the registry holding the collector's metrics
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}
