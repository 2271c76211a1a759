package integrity

import "github.com/prometheus/client_golang/prometheus"

var (
	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "privgate",
			Subsystem: "integrity",
			Name:      "outcomes_total",
			Help:      "Verification outcomes by status",
		},
		[]string{"outcome"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "privgate",
			Subsystem: "integrity",
			Name:      "verify_duration_seconds",
			Help:      "Duration of VerifyOrRepair calls in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		},
		[]string{"outcome"},
	)

	fetchBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "privgate",
			Subsystem: "integrity",
			Name:      "fetch_bytes_total",
			Help:      "Bytes downloaded while fetching artifacts",
		},
	)
)

func init() {
	prometheus.MustRegister(outcomesTotal, verifyDuration, fetchBytesTotal)
}
