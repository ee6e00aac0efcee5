package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ensembleview",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of simulation API endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ensembleview",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by simulation API endpoint",
		},
		[]string{"endpoint"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ensembleview",
			Subsystem: "api",
			Name:      "projection_cache_total",
			Help:      "Projection cache lookups by result",
		},
		[]string{"kind", "result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, CacheLookups)
	})
}
