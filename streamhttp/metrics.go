package streamhttp

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Terminal request outcomes recorded in metrics and logs.
const (
	outcomeOK           = "ok"           // payload delivered, clean end-of-stream
	outcomeError        = "error"        // failure before commitment, clean 500
	outcomeTruncated    = "truncated"    // failure after commitment, stream dropped
	outcomeDisconnected = "disconnected" // client went away first
)

type metrics struct {
	requests *prometheus.CounterVec
	fillers  prometheus.Counter
	ttfb     prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drip",
			Name:      "requests_total",
			Help:      "Streamed requests by terminal outcome.",
		}, []string{"outcome"}),
		fillers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drip",
			Name:      "keepalive_fillers_total",
			Help:      "Keep-alive filler bytes written to committed streams.",
		}),
		ttfb: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drip",
			Name:      "time_to_first_byte_seconds",
			Help:      "Time from request start to the first response byte.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
	}
	reg.MustRegister(m.requests, m.fillers, m.ttfb)
	return m
}

var (
	sharedMetricsOnce sync.Once
	sharedMetricsInst *metrics
)

// sharedMetrics lazily registers one metric set on the default registry so
// multiple handlers in one process do not collide on registration.
func sharedMetrics() *metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetricsInst = newMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetricsInst
}
