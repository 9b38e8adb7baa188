// Package metrics records query statistics of the Feldera datasource.
// Collectors are registered on the default Prometheus registry, which the
// plugin SDK serves to Grafana.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feldera",
		Subsystem: "datasource",
		Name:      "queries_total",
		Help:      "Number of ad-hoc queries sent to Feldera, by outcome.",
	}, []string{"status"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "feldera",
		Subsystem: "datasource",
		Name:      "query_duration_seconds",
		Help:      "Duration of ad-hoc queries including framing.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	concurrentQueries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "feldera",
		Subsystem: "datasource",
		Name:      "concurrent_queries",
		Help:      "Number of queries currently in flight.",
	})
)

// Metrics is a snapshot of the in-process query statistics
type Metrics struct {
	QueryCount        uint64
	ErrorCount        uint64
	TotalQueryTime    time.Duration
	AverageQueryTime  time.Duration
	LastQueryTime     time.Time
	ConcurrentQueries int32
}

var (
	mu      sync.Mutex
	metrics = Metrics{}
)

// RecordQuery records metrics for a completed query
func RecordQuery(duration time.Duration, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	queriesTotal.WithLabelValues(status).Inc()
	queryDuration.Observe(duration.Seconds())

	mu.Lock()
	defer mu.Unlock()
	metrics.QueryCount++
	if err != nil {
		metrics.ErrorCount++
	}
	metrics.TotalQueryTime += duration
	metrics.AverageQueryTime = metrics.TotalQueryTime / time.Duration(metrics.QueryCount)
	metrics.LastQueryTime = time.Now()
}

// IncrementConcurrentQueries increments the count of concurrent queries
func IncrementConcurrentQueries() {
	concurrentQueries.Inc()

	mu.Lock()
	defer mu.Unlock()
	metrics.ConcurrentQueries++
}

// DecrementConcurrentQueries decrements the count of concurrent queries
func DecrementConcurrentQueries() {
	concurrentQueries.Dec()

	mu.Lock()
	defer mu.Unlock()
	metrics.ConcurrentQueries--
}

// GetMetrics returns a snapshot of the current metrics
func GetMetrics() Metrics {
	mu.Lock()
	defer mu.Unlock()
	return metrics
}

// reset clears the snapshot. Prometheus collectors keep their values.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	metrics = Metrics{}
}
