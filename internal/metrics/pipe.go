package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pipeBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "bytes_total",
		Help:      "Bytes read from worker output streams",
	}, []string{"stream"})

	pipeLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "lines_total",
		Help:      "Log lines emitted from worker output streams",
	}, []string{"stream"})

	pipeReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "read_errors_total",
		Help:      "Watchers terminated by an unexpected read error",
	}, []string{"stream"})

	pipeWatchersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pipe",
		Name:      "watchers_active",
		Help:      "Pipe watchers whose read loop is running",
	})
)

// AddPipeRead records one successful read of n bytes that produced lines log lines.
func AddPipeRead(stream string, n, lines int) {
	pipeBytes.WithLabelValues(stream).Add(float64(n))
	pipeLines.WithLabelValues(stream).Add(float64(lines))
}

// IncPipeReadError records a watcher stopped by a read error.
func IncPipeReadError(stream string) {
	pipeReadErrors.WithLabelValues(stream).Inc()
}

// WatcherStarted marks a watcher's read loop as running.
func WatcherStarted() {
	pipeWatchersActive.Inc()
}

// WatcherStopped marks a watcher's read loop as finished.
func WatcherStopped() {
	pipeWatchersActive.Dec()
}
