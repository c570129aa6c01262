package ethsig

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for signed-message verification.
type Metrics struct {
	verifyTotal    *prometheus.CounterVec
	verifyDuration prometheus.Histogram
	malformedTotal *prometheus.CounterVec
	registerer     prometheus.Registerer
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

	m.verifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "verify_total",
			Help:      "Total number of signed-message verifications",
		},
		[]string{"result"},
	)

	m.verifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "verify_duration_seconds",
			Help:      "Signed-message verification duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	m.malformedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "malformed_total",
			Help:      "Total number of malformed signed-message claims",
		},
		[]string{"reason"},
	)

	// Register all metrics with the provided registerer, ignoring duplicates.
	// This is safe because the metric descriptors are identical when re-registered.
	collectors := []prometheus.Collector{
		m.verifyTotal,
		m.verifyDuration,
		m.malformedTotal,
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
	for _, result := range []string{resultAuthenticated, resultRejected, resultError} {
		m.verifyTotal.WithLabelValues(result)
	}
	for _, reason := range []string{"invalid_address", "checksum_mismatch", "invalid_date", "invalid_signature", "crypto_failure"} {
		m.malformedTotal.WithLabelValues(reason)
	}
}

// RecordVerification records a verification outcome and its duration.
func (m *Metrics) RecordVerification(result string, duration time.Duration) {
	m.verifyTotal.WithLabelValues(result).Inc()
	m.verifyDuration.Observe(duration.Seconds())
}

// RecordMalformed records a malformed claim by failure reason.
func (m *Metrics) RecordMalformed(reason string) {
	m.malformedTotal.WithLabelValues(reason).Inc()
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.verifyTotal,
		m.verifyDuration,
		m.malformedTotal,
	)
}
