package daemon

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/waterwallet/wwdash/internal/model"
)

// metrics holds the daemon's prometheus collectors on a private registry
// so several services can coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	allocated    *prometheus.GaugeVec
	used         *prometheus.GaugeVec
	usagePct     *prometheus.GaugeVec
	efficiency   prometheus.Gauge
	saved        prometheus.Gauge
	pollErrors   *prometheus.CounterVec
	pollDuration prometheus.Histogram
	leakAlerts   prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		allocated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wwdash_allocated_liters",
			Help: "Allocated liters by category.",
		}, []string{"category"}),
		used: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wwdash_used_liters",
			Help: "Used liters by category.",
		}, []string{"category"}),
		usagePct: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wwdash_usage_percent",
			Help: "Used as a percentage of allocated, by category.",
		}, []string{"category"}),
		efficiency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wwdash_efficiency_percent",
			Help: "Total used as a rounded percentage of total allocated.",
		}),
		saved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wwdash_saved_liters",
			Help: "Allocated minus used liters; negative when over.",
		}),
		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wwdash_poll_errors_total",
			Help: "Failed poll cycles by error kind.",
		}, []string{"kind"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wwdash_poll_duration_seconds",
			Help:    "Histogram of poll cycle durations.",
			Buckets: prometheus.DefBuckets,
		}),
		leakAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wwdash_leak_alerts_total",
			Help: "Leak-flagged samples reported.",
		}),
	}

	m.registry.MustRegister(
		m.allocated,
		m.used,
		m.usagePct,
		m.efficiency,
		m.saved,
		m.pollErrors,
		m.pollDuration,
		m.leakAlerts,
	)
	return m
}

func (m *metrics) observe(mt model.Metrics) {
	m.efficiency.Set(float64(mt.Efficiency))
	m.saved.Set(mt.SavedLiters)
	for _, c := range mt.Categories {
		key := string(c.Key)
		m.allocated.WithLabelValues(key).Set(c.Allocated)
		m.used.WithLabelValues(key).Set(c.Used)
		m.usagePct.WithLabelValues(key).Set(c.UsagePercent)
	}
}
