// Package metrics exposes the Prometheus counters and gauges both NM and
// SS publish on their admin HTTP surface, following the
// teacher's promauto.With(registry) idiom rather than the global default
// registry, so NM and SS each own an isolated registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NMMetrics holds the Name Manager's instrumentation.
type NMMetrics struct {
	Registry        *prometheus.Registry
	OpLatency       *prometheus.HistogramVec
	OpErrors        *prometheus.CounterVec
	SSNodesByState  *prometheus.GaugeVec
	AccessRequests  prometheus.Counter
}

// NewNMMetrics builds and registers NM's metrics on a fresh registry.
func NewNMMetrics() *NMMetrics {
	reg := prometheus.NewRegistry()
	return &NMMetrics{
		Registry: reg,
		OpLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nm",
			Name:      "op_latency_seconds",
			Help:      "Latency of NM-handled operations by opcode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		OpErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "nm",
			Name:      "op_errors_total",
			Help:      "Count of NM operations that returned an ERROR frame, by error code.",
		}, []string{"op", "error_code"}),
		SSNodesByState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nm",
			Name:      "ss_nodes",
			Help:      "Registered Storage Server nodes by liveness state.",
		}, []string{"state"}),
		AccessRequests: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "nm",
			Name:      "access_requests_total",
			Help:      "Count of REQUESTACCESS calls received.",
		}),
	}
}

// ObserveOp records one dispatched operation's latency and, on failure, its
// error code.
func (m *NMMetrics) ObserveOp(op, errCode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OpLatency.WithLabelValues(op).Observe(elapsed.Seconds())
	if errCode != "" && errCode != "SUCCESS" {
		m.OpErrors.WithLabelValues(op, errCode).Inc()
	}
}

// SSMetrics holds a Storage Server's instrumentation.
type SSMetrics struct {
	Registry       *prometheus.Registry
	OpLatency      *prometheus.HistogramVec
	LockContention prometheus.Counter
	Checkpoints    prometheus.Counter
	HostedFiles    prometheus.Gauge
}

// NewSSMetrics builds and registers one SS's metrics on a fresh registry.
func NewSSMetrics() *SSMetrics {
	reg := prometheus.NewRegistry()
	return &SSMetrics{
		Registry: reg,
		OpLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ss",
			Name:      "op_latency_seconds",
			Help:      "Latency of SS-handled operations by opcode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		LockContention: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "ss",
			Name:      "lock_contention_total",
			Help:      "Count of WRITE_LOCK attempts that found the sentence already held.",
		}),
		Checkpoints: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "ss",
			Name:      "checkpoints_created_total",
			Help:      "Count of successful CHECKPOINT operations.",
		}),
		HostedFiles: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "ss",
			Name:      "hosted_files",
			Help:      "Number of files currently hosted by this Storage Server.",
		}),
	}
}

// ObserveOp records one dispatched operation's latency.
func (m *SSMetrics) ObserveOp(op string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OpLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}
