package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification core. All methods are
// nil-safe so tests can pass a nil receiver without wiring a registry.
type Metrics struct {
	// Verification outcomes by operation and status/outcome value.
	Outcomes *prometheus.CounterVec

	// End-to-end handler latency by operation.
	RequestLatency *prometheus.HistogramVec

	// Audit writes that failed and were swallowed by the recorder.
	AuditWriteFailures prometheus.Counter
}

// New creates a Metrics instance and registers it with the default registry.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tagproof_outcomes_total",
			Help: "Verification outcomes by operation and status",
		}, []string{"operation", "status"}),

		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tagproof_request_duration_seconds",
			Help:    "Duration of verification requests by operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tagproof_audit_write_failures_total",
			Help: "Audit records that could not be persisted (failure swallowed)",
		}),
	}
}

// IncrementOutcome records one terminal verification outcome.
func (m *Metrics) IncrementOutcome(operation, status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(operation, status).Inc()
	}
}

// ObserveRequestLatency records the duration of one request.
func (m *Metrics) ObserveRequestLatency(operation string, d time.Duration) {
	if m != nil {
		m.RequestLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// IncrementAuditWriteFailures counts a swallowed audit write failure.
func (m *Metrics) IncrementAuditWriteFailures() {
	if m != nil {
		m.AuditWriteFailures.Inc()
	}
}
