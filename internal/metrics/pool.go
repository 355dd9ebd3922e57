// Package metrics provides Prometheus metrics for the application pool and
// the pipe watchers of its workers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "apppool"

// Spawn results.
const (
	SpawnResultSuccess = "success"
	SpawnResultFailure = "failure"
)

var (
	poolSpawns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "spawns_total",
		Help:      "Spawn attempts made on cache misses, by result",
	}, []string{"result"})

	poolSpawnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "spawn_duration_seconds",
		Help:      "Time spent in the spawn collaborator, including failures",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	poolCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "cache_hits_total",
		Help:      "Get calls answered from the worker cache",
	})

	poolCachedWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "cached_workers",
		Help:      "Worker handles currently held in the cache",
	})
)

// RecordSpawn records one spawn attempt and its duration.
func RecordSpawn(elapsed time.Duration, err error) {
	result := SpawnResultSuccess
	if err != nil {
		result = SpawnResultFailure
	}
	poolSpawns.WithLabelValues(result).Inc()
	poolSpawnDuration.Observe(elapsed.Seconds())
}

// RecordCacheHit records a Get answered from the cache.
func RecordCacheHit() {
	poolCacheHits.Inc()
}

// SetCachedWorkers sets the number of cached worker handles.
func SetCachedWorkers(n int) {
	poolCachedWorkers.Set(float64(n))
}
