package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects Prometheus-compatible metrics for scheduler
// execution, all namespaced "flowforge_":
//
//   - active_runs (gauge): runs currently executing.
//   - queue_length (gauge): nodes pending in a run's execution queue.
//   - step_latency_ms (histogram): node invocation duration, by status.
//   - retries_total (counter): retry attempts, by node and reason.
//   - node_failures_total (counter): terminal node failures, by node.
//   - events_emitted_total (counter): events published through the bus.
type PrometheusMetrics struct {
	activeRuns   prometheus.Gauge
	queueLength  *prometheus.GaugeVec
	stepLatency  *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	nodeFailures *prometheus.CounterVec
	eventsEmitted *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers every metric against registry. A nil
// registry uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowforge",
			Name:      "active_runs",
			Help:      "Number of workflow runs currently executing",
		}),
		queueLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flowforge",
			Name:      "queue_length",
			Help:      "Number of nodes pending in a run's execution queue",
		}, []string{"run_id"}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowforge",
			Name:      "step_latency_ms",
			Help:      "Node invocation duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"run_id", "node_id", "status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Name:      "retries_total",
			Help:      "Cumulative node retry attempts",
		}, []string{"run_id", "node_id", "reason"}),
		nodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Name:      "node_failures_total",
			Help:      "Terminal (non-retried) node failures",
		}, []string{"run_id", "node_id"}),
		eventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowforge",
			Name:      "events_emitted_total",
			Help:      "Events published through the event bus",
		}, []string{"run_id", "event_type"}),
	}
}

// RecordStepLatency observes a node invocation's duration.
func (pm *PrometheusMetrics) RecordStepLatency(runID, nodeID string, latency time.Duration, status string) {
	if !pm.isEnabled() {
		return
	}
	pm.stepLatency.WithLabelValues(runID, nodeID, status).Observe(float64(latency.Milliseconds()))
}

// IncrementRetries records a retry attempt.
func (pm *PrometheusMetrics) IncrementRetries(runID, nodeID, reason string) {
	if !pm.isEnabled() {
		return
	}
	pm.retries.WithLabelValues(runID, nodeID, reason).Inc()
}

// IncrementNodeFailures records a terminal node failure.
func (pm *PrometheusMetrics) IncrementNodeFailures(runID, nodeID string) {
	if !pm.isEnabled() {
		return
	}
	pm.nodeFailures.WithLabelValues(runID, nodeID).Inc()
}

// IncrementEventsEmitted records an event publication.
func (pm *PrometheusMetrics) IncrementEventsEmitted(runID, eventType string) {
	if !pm.isEnabled() {
		return
	}
	pm.eventsEmitted.WithLabelValues(runID, eventType).Inc()
}

// UpdateQueueLength sets the current pending-node count for a run.
func (pm *PrometheusMetrics) UpdateQueueLength(runID string, length int) {
	if !pm.isEnabled() {
		return
	}
	pm.queueLength.WithLabelValues(runID).Set(float64(length))
}

// SetActiveRuns sets the current number of executing runs.
func (pm *PrometheusMetrics) SetActiveRuns(count int) {
	if !pm.isEnabled() {
		return
	}
	pm.activeRuns.Set(float64(count))
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// Disable turns off metric recording (useful for tests).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable turns metric recording back on.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}
