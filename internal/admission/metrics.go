package admission

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for admission storage and gate
// decisions.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	failOpenTotal     *prometheus.CounterVec
	lookupResults     *prometheus.CounterVec
	gateDecisions     *prometheus.CounterVec
	registerer        prometheus.Registerer
}

// NewMetrics creates a new Metrics instance.
// Metrics are registered with prometheus.DefaultRegisterer so they are
// automatically exposed on the default /metrics endpoint.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance with a custom registerer.
// This is useful for testing where a private registry is preferred.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gwguard"
	}

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registerer: registerer,
	}

	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "store_operations_total",
			Help:      "Total number of admission store operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "store_operation_duration_seconds",
			Help:      "Admission store operation duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	m.failOpenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "fail_open_total",
			Help:      "Total number of read failures swallowed into fail-open results",
		},
		[]string{"operation"},
	)

	m.lookupResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "lookup_results_total",
			Help:      "Total number of single-IP lookups by resulting status",
		},
		[]string{"status"},
	)

	m.gateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "gate_decisions_total",
			Help:      "Total number of admission gate decisions",
		},
		[]string{"decision"},
	)

	// Register all metrics with the provided registerer, ignoring duplicates.
	// This is safe because the metric descriptors are identical when re-registered.
	collectors := []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.failOpenTotal,
		m.lookupResults,
		m.gateDecisions,
	}
	for _, c := range collectors {
		// Use Register instead of MustRegister to handle duplicate registration gracefully.
		// If the metric is already registered (e.g., in tests), we ignore the error.
		_ = m.registerer.Register(c)
	}

	return m
}

// Init pre-initializes common label combinations with zero values so that
// metrics appear in /metrics output immediately after startup. Prometheus
// *Vec types only emit metric lines after WithLabelValues() is called at
// least once. This method is idempotent and safe to call multiple times.
func (m *Metrics) Init() {
	for _, operation := range []string{opInsert, opBulkInsert, opRead, opReadAll} {
		for _, status := range []string{"success", "error"} {
			m.operationsTotal.WithLabelValues(operation, status)
		}
		m.operationDuration.WithLabelValues(operation)
	}
	for _, operation := range []string{opRead, opReadAll} {
		m.failOpenTotal.WithLabelValues(operation)
	}
	for _, status := range []string{"none", "trusted", "blocked"} {
		m.lookupResults.WithLabelValues(status)
	}
	for _, decision := range []string{"allow", "trust", "block"} {
		m.gateDecisions.WithLabelValues(decision)
	}
}

// RecordOperation records one store operation and its duration.
func (m *Metrics) RecordOperation(operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordFailOpen records a swallowed read-side failure.
func (m *Metrics) RecordFailOpen(operation string) {
	m.failOpenTotal.WithLabelValues(operation).Inc()
}

// RecordLookup records the outcome of a single-IP lookup.
func (m *Metrics) RecordLookup(status Status) {
	m.lookupResults.WithLabelValues(status.String()).Inc()
}

// RecordGateDecision records an admission gate decision.
func (m *Metrics) RecordGateDecision(decision string) {
	m.gateDecisions.WithLabelValues(decision).Inc()
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.failOpenTotal,
		m.lookupResults,
		m.gateDecisions,
	)
}
