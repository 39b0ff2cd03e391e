package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MonitorMetrics exposes the acknowledgement monitor to Prometheus. A nil
// *MonitorMetrics is valid and records nothing.
type MonitorMetrics struct {
	reg  prometheus.Registerer
	once sync.Once

	sweeps        prometheus.Counter
	sweepDuration prometheus.Histogram
	alerts        *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	breached      prometheus.Gauge
}

// NewMonitorMetrics registers the collectors on reg, or on the default registerer when reg is nil.
func NewMonitorMetrics(reg prometheus.Registerer) *MonitorMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &MonitorMetrics{reg: reg}
	m.ensureRegistered()
	return m
}

func (m *MonitorMetrics) ensureRegistered() {
	m.once.Do(func() {
		m.sweeps = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cleanshift",
			Subsystem: "monitor",
			Name:      "sweeps_total",
			Help:      "Acknowledgement sweeps executed.",
		})
		m.sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cleanshift",
			Subsystem: "monitor",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one acknowledgement sweep.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		})
		m.alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanshift",
			Subsystem: "monitor",
			Name:      "alerts_total",
			Help:      "Escalation alerts by delivery result (sent/failed).",
		}, []string{"result"})
		m.skipped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cleanshift",
			Subsystem: "monitor",
			Name:      "skipped_tasks_total",
			Help:      "Tasks passed over by a sweep, by reason.",
		}, []string{"reason"})
		m.breached = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cleanshift",
			Subsystem: "monitor",
			Name:      "breached_tasks",
			Help:      "Tasks past their grace deadline in the last sweep.",
		})

		m.reg.MustRegister(m.sweeps, m.sweepDuration, m.alerts, m.skipped, m.breached)
	})
}

func (m *MonitorMetrics) observeSweep(r SweepResult) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.sweepDuration.Observe(r.Duration.Seconds())
	m.breached.Set(float64(r.Breached))
	if r.Alerted > 0 {
		m.alerts.WithLabelValues("sent").Add(float64(r.Alerted))
	}
	if r.Failed > 0 {
		m.alerts.WithLabelValues("failed").Add(float64(r.Failed))
	}
	if r.UnknownShift > 0 {
		m.skipped.WithLabelValues("unknown_shift").Add(float64(r.UnknownShift))
	}
	if r.MissingAdmin > 0 {
		m.skipped.WithLabelValues("missing_admin").Add(float64(r.MissingAdmin))
	}
	if r.LostClaim > 0 {
		m.skipped.WithLabelValues("claimed_elsewhere").Add(float64(r.LostClaim))
	}
}
