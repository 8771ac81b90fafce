// Package jobmetrics instruments background jobs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	Runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	Rows     *prometheus.GaugeVec
	migrated *prometheus.CounterVec
	links    *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer, or against the
// default registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker times a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for job.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run outcome and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.Runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// SetRows publishes the row count last observed for a collection.
func (m *Metrics) SetRows(resource string, count int64) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(resource).Set(float64(count))
}

// AddMigrated counts legacy attachment references by outcome
// ("moved" or "skipped").
func (m *Metrics) AddMigrated(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.migrated.WithLabelValues(outcome).Add(float64(count))
}

// AddLinks counts checked attachment links by outcome.
func (m *Metrics) AddLinks(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.links.WithLabelValues(outcome).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lumen_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lumen_content_rows",
		Help: "Rows per content collection at the last census.",
	}, []string{"resource"})
	migrated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_attachments_migrated_total",
		Help: "Legacy attachment references processed by outcome.",
	}, []string{"outcome"})
	links := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_attachment_links_total",
		Help: "Attachment links checked by outcome.",
	}, []string{"outcome"})
	registerer.MustRegister(runs, failures, duration, rows, migrated, links)
	return &Metrics{Runs: runs, failures: failures, duration: duration, Rows: rows, migrated: migrated, links: links}
}
