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
			Namespace: "renderframe",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "renderframe",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	timingReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renderframe",
			Subsystem: "stats",
			Name:      "timing_reports_total",
			Help:      "Timing reports received by the collector.",
		},
		[]string{"origin", "format"},
	)
	timingMarks = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "renderframe",
			Subsystem: "stats",
			Name:      "timing_mark_seconds",
			Help:      "Lifecycle marks relative to frame construction, in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"origin", "format", "mark"},
	)
	giveUps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renderframe",
			Subsystem: "stats",
			Name:      "gave_up_total",
			Help:      "Content loads abandoned after timeouts or exhausted retries.",
		},
		[]string{"format"},
	)
	frameStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "renderframe",
			Subsystem: "frame",
			Name:      "statuses_total",
			Help:      "Status messages posted to hosts.",
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, timingReports, timingMarks, giveUps, frameStatuses)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordTiming counts one timing report. Marks are milliseconds relative to
// the "constructor" mark; reports without one only bump the counter.
func RecordTiming(origin, format string, marks map[string]float64) {
	RegisterMetrics()
	timingReports.WithLabelValues(origin, format).Inc()
	start, ok := marks["constructor"]
	if !ok {
		return
	}
	for mark, at := range marks {
		if mark == "constructor" || at < start {
			continue
		}
		timingMarks.WithLabelValues(origin, format, mark).Observe((at - start) / 1000)
	}
}

func RecordGiveUp(format string) {
	RegisterMetrics()
	giveUps.WithLabelValues(format).Inc()
}

func RecordFrameStatus(kind string) {
	RegisterMetrics()
	frameStatuses.WithLabelValues(kind).Inc()
}
