package resource

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for resource stores.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fallbacks  *prometheus.CounterVec
	discards   *prometheus.CounterVec
	rows       *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers store metrics against registerer. A nil registerer
// uses the Prometheus default registerer, registering only once.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_store_operations_total",
		Help: "Store operations partitioned by resource, operation and outcome.",
	}, []string{"resource", "op", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lumen_store_operation_duration_seconds",
		Help:    "Round-trip duration of store operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource", "op"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_store_list_fallbacks_total",
		Help: "List calls that degraded to a weaker ordering strategy.",
	}, []string{"resource", "strategy"})
	discards := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_store_discarded_responses_total",
		Help: "Responses dropped because their store was closed while the call was in flight.",
	}, []string{"resource"})
	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lumen_store_cached_rows",
		Help: "Rows currently held by the most recently updated store per resource.",
	}, []string{"resource"})
	registerer.MustRegister(operations, duration, fallbacks, discards, rows)
	return &Metrics{operations: operations, duration: duration, fallbacks: fallbacks, discards: discards, rows: rows}
}

func (m *Metrics) observe(resource, op string, err error, start time.Time) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
	}
	m.operations.WithLabelValues(resource, op, outcome).Inc()
	m.duration.WithLabelValues(resource, op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) fallback(resource, strategy string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(resource, strategy).Inc()
}

func (m *Metrics) discarded(resource string) {
	if m == nil {
		return
	}
	m.discards.WithLabelValues(resource).Inc()
}

func (m *Metrics) setRows(resource string, n int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(resource).Set(float64(n))
}
