package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autopost"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// PipelineMetrics tracks generator calls, pipeline runs and platform publishes.
type PipelineMetrics struct {
	generatorDuration *prometheus.HistogramVec
	generatorOutcome  *prometheus.CounterVec
	generatorRetries  *prometheus.CounterVec
	pipelineRuns      *prometheus.CounterVec
	publishOutcome    *prometheus.CounterVec
	metricsRefresh    *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	m := &PipelineMetrics{
		generatorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_duration_seconds",
			Help:      "Latency of external generator calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"generator"}),
		generatorOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_calls_total",
			Help:      "External generator calls by outcome.",
		}, []string{"generator", "outcome"}),
		generatorRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_retries_total",
			Help:      "Generator slots re-dispatched after a failure.",
		}, []string{"generator"}),
		pipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline jobs by final status.",
		}, []string{"status"}),
		publishOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_attempts_total",
			Help:      "Scheduled publish attempts by platform and outcome.",
		}, []string{"platform", "outcome"}),
		metricsRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_refresh_total",
			Help:      "Published post metric refreshes by platform and outcome.",
		}, []string{"platform", "outcome"}),
	}
	reg.MustRegister(
		m.generatorDuration,
		m.generatorOutcome,
		m.generatorRetries,
		m.pipelineRuns,
		m.publishOutcome,
		m.metricsRefresh,
	)
	return m
}

// ObserveGenerator records one generator call.
func (m *PipelineMetrics) ObserveGenerator(generator string, duration time.Duration, err error) {
	if m == nil || m.generatorDuration == nil {
		return
	}
	generator = normalizeLabel(generator)
	m.generatorDuration.WithLabelValues(generator).Observe(duration.Seconds())
	m.generatorOutcome.WithLabelValues(generator, outcomeOf(err)).Inc()
}

// IncGeneratorRetry counts a slot that goes back to pending for another attempt.
func (m *PipelineMetrics) IncGeneratorRetry(generator string) {
	if m == nil || m.generatorRetries == nil {
		return
	}
	m.generatorRetries.WithLabelValues(normalizeLabel(generator)).Inc()
}

// IncPipelineRun counts a finalized pipeline job.
func (m *PipelineMetrics) IncPipelineRun(status string) {
	if m == nil || m.pipelineRuns == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPublish counts a scheduled publish attempt.
func (m *PipelineMetrics) IncPublish(platform, outcome string) {
	if m == nil || m.publishOutcome == nil {
		return
	}
	m.publishOutcome.WithLabelValues(normalizeLabel(platform), normalizeLabel(outcome)).Inc()
}

// IncMetricsRefresh counts a published post metrics refresh.
func (m *PipelineMetrics) IncMetricsRefresh(platform, outcome string) {
	if m == nil || m.metricsRefresh == nil {
		return
	}
	m.metricsRefresh.WithLabelValues(normalizeLabel(platform), normalizeLabel(outcome)).Inc()
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
