package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks successful lock acquisitions.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devlock_acquire_total",
		Help: "Total number of successful lock acquisitions",
	})
	// AcquireFailures tracks lock requests that failed before or during the wait.
	AcquireFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devlock_acquire_failures_total",
		Help: "Total number of failed lock requests",
	})
	// ReleaseCounter tracks lock releases.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "devlock_release_total",
		Help: "Total number of lock releases",
	})
	// HeldGauge reports the number of locks currently held by this process.
	HeldGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "devlock_held_locks",
		Help: "Current number of locks held by this process",
	})
	// WaitSeconds observes how long callers blocked waiting for ownership.
	WaitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "devlock_acquire_wait_seconds",
		Help:    "Time spent blocked waiting for lock ownership",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterLockMetrics registers devlock broker metrics on the provided registry.
func RegisterLockMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireCounter, AcquireFailures, ReleaseCounter, HeldGauge, WaitSeconds)
}
