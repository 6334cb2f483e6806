package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsGeneratorOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)

	metrics.ObserveGenerator("caption", 2*time.Second, nil)
	metrics.ObserveGenerator("image", 60*time.Second, errors.New("timeout"))
	metrics.ObserveGenerator("image", time.Second, errors.New("upstream"))
	metrics.IncGeneratorRetry("image")
	metrics.IncPipelineRun("completed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := counterWithLabels(mfs, "autopost_generator_calls_total", map[string]string{"generator": "image", "outcome": OutcomeFailure}); got != 2 {
		t.Fatalf("expected 2 image failures, got %f", got)
	}
	if got := counterWithLabels(mfs, "autopost_generator_calls_total", map[string]string{"generator": "caption", "outcome": OutcomeSuccess}); got != 1 {
		t.Fatalf("expected 1 caption success, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "autopost_generator_retries_total", "generator", "image"); err != nil || got != 1 {
		t.Fatalf("expected 1 retry, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "autopost_pipeline_runs_total", "status", "completed"); err != nil || got != 1 {
		t.Fatalf("expected 1 completed run, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "autopost_generator_duration_seconds", "generator", "image"); err != nil || got != 61 {
		t.Fatalf("expected image latency sum 61, got %f err=%v", got, err)
	}
}

func TestPipelineMetricsPublishOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)

	metrics.IncPublish("instagram", OutcomeSuccess)
	metrics.IncPublish("linkedin", OutcomeFailure)
	metrics.IncMetricsRefresh("instagram", OutcomeSkipped)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := counterWithLabels(mfs, "autopost_publish_attempts_total", map[string]string{"platform": "linkedin", "outcome": OutcomeFailure}); got != 1 {
		t.Fatalf("expected 1 linkedin failure, got %f", got)
	}
	if got := counterWithLabels(mfs, "autopost_metrics_refresh_total", map[string]string{"platform": "instagram", "outcome": OutcomeSkipped}); got != 1 {
		t.Fatalf("expected 1 skipped refresh, got %f", got)
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var metrics *PipelineMetrics
	metrics.ObserveGenerator("caption", time.Second, nil)
	metrics.IncGeneratorRetry("caption")
	metrics.IncPipelineRun("failed")
	metrics.IncPublish("instagram", OutcomeSuccess)
	metrics.IncMetricsRefresh("instagram", OutcomeSuccess)
}

func counterWithLabels(mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return -1
	}
	for _, metric := range mf.GetMetric() {
		matched := true
		for k, v := range labels {
			if !matchesLabel(metric.GetLabel(), k, v) {
				matched = false
				break
			}
		}
		if matched {
			return metric.GetCounter().GetValue()
		}
	}
	return -1
}
