// pkg/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry wiring.
type Metrics struct {
	resolutions      *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	auditWrites      *prometheus.CounterVec
	auditDropped     prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fx_rate_resolutions_total",
			Help: "Rate resolutions by the source that answered.",
		}, []string{"source"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fx_provider_failures_total",
			Help: "Live provider calls that failed or were refused by the quota guard.",
		}, []string{"provider"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fx_provider_request_duration_seconds",
			Help:    "Latency of live provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		auditWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fx_audit_writes_total",
			Help: "Conversion audit writes by outcome.",
		}, []string{"outcome"}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fx_audit_dropped_total",
			Help: "Audit records dropped because the write buffer was full.",
		}),
	}

	reg.MustRegister(m.resolutions, m.providerFailures, m.providerLatency, m.auditWrites, m.auditDropped)
	return m
}

func (m *Metrics) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveProviderCall(provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		m.providerFailures.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) AuditWritten(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.auditWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}
