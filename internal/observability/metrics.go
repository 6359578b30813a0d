package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serial9",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "serial9",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	codecBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serial9",
			Subsystem: "codec",
			Name:      "bytes_total",
			Help:      "Wire bytes moved through the codec.",
		},
		[]string{"node", "direction"},
	)
	codecValues = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serial9",
			Subsystem: "codec",
			Name:      "values_total",
			Help:      "Decoded 9-bit values.",
		},
		[]string{"node"},
	)
	codecFallback = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serial9",
			Subsystem: "codec",
			Name:      "fallback_total",
			Help:      "Transport failures absorbed by the fallback buffer.",
		},
		[]string{"node", "op"},
	)
	codecFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serial9",
			Subsystem: "codec",
			Name:      "faults_total",
			Help:      "Recovered receive faults.",
		},
		[]string{"node", "kind"},
	)
	codecBaud = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serial9",
			Subsystem: "codec",
			Name:      "baud_changes_total",
			Help:      "Baud rate requests sent to the bridge.",
		},
		[]string{"node", "rate"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, codecBytes, codecValues, codecFallback, codecFaults, codecBaud)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordCodecBytes(node, direction string, n int) {
	RegisterMetrics()
	if n <= 0 {
		return
	}
	codecBytes.WithLabelValues(node, direction).Add(float64(n))
}

func RecordCodecValues(node string, n int) {
	RegisterMetrics()
	if n <= 0 {
		return
	}
	codecValues.WithLabelValues(node).Add(float64(n))
}

func RecordCodecFallback(node, op string) {
	RegisterMetrics()
	codecFallback.WithLabelValues(node, op).Inc()
}

func RecordCodecFault(node, kind string) {
	RegisterMetrics()
	codecFaults.WithLabelValues(node, kind).Inc()
}

func RecordCodecBaud(node, rate string) {
	RegisterMetrics()
	codecBaud.WithLabelValues(node, rate).Inc()
}
