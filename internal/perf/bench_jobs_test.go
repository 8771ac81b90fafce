package perf

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/lumen-foundation/lumen/internal/content"
	jobmetrics "github.com/lumen-foundation/lumen/internal/jobs"
	"github.com/lumen-foundation/lumen/jobs"
)

func TestContentJobThroughputAndReliability(t *testing.T) {
	ctx := context.Background()
	catalog, err := content.NewCatalog(content.Source{Backend: content.BackendMemory}, content.Options{})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	t.Cleanup(catalog.Close)
	reg := prometheus.NewRegistry()
	worker := jobs.NewContentJobs(catalog, nil, jobmetrics.NewMetrics(reg))

	census, err := jobs.NewCensusTask(jobs.CensusPayload{})
	if err != nil {
		t.Fatalf("census task: %v", err)
	}
	for i := 0; i < 60; i++ {
		if err := worker.HandleCensus(ctx, census); err != nil {
			t.Fatalf("census run %d: %v", i, err)
		}
	}
	for i := 0; i < 15; i++ {
		if err := worker.HandleRefresh(ctx, jobs.NewRefreshTask()); err != nil {
			t.Fatalf("refresh run %d: %v", i, err)
		}
	}
	// Malformed payloads count as failures.
	for i := 0; i < 3; i++ {
		if err := worker.HandleCensus(ctx, asynq.NewTask(jobs.TaskContentCensus, []byte("{"))); err == nil {
			t.Fatal("expected malformed census payload to fail")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "lumen_jobs_total", map[string]string{"job": jobs.TaskContentCensus, "status": "success"})
	failure := metricValue(t, families, "lumen_jobs_total", map[string]string{"job": jobs.TaskContentCensus, "status": "failure"})
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("census success ratio too low: %f", ratio)
	}

	if mean := histogramMean(t, families, "lumen_job_duration_seconds", map[string]string{"job": jobs.TaskContentRefresh}); mean > 0.5 {
		t.Fatalf("refresh duration above budget: %f", mean)
	}
	if mean := histogramMean(t, families, "lumen_job_duration_seconds", map[string]string{"job": jobs.TaskContentCensus}); mean > 0.5 {
		t.Fatalf("census duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if !hasLabels(metric, labels) {
				continue
			}
			switch fam.GetType() {
			case dto.MetricType_COUNTER:
				return metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				return metric.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		want, ok := labels[lp.GetName()]
		if !ok {
			continue
		}
		if lp.GetValue() != want {
			return false
		}
		matched++
	}
	return matched == len(labels)
}
