// Package prometheus defines the service's Prometheus instrumentation.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics instruments the analysis pipeline.  All metrics live on a
// dedicated registry so tests can create isolated instances.
type PipelineMetrics struct {
	registry *prometheus.Registry

	JobsStarted   *prometheus.CounterVec
	JobsFinished  *prometheus.CounterVec
	JobDuration   prometheus.Histogram
	ChunksTotal   prometheus.Counter
	LLMCalls      *prometheus.CounterVec
	LLMLatency    *prometheus.HistogramVec
	MergeRounds   prometheus.Histogram
	FeaturesTotal prometheus.Histogram
	PassagesTotal prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metric set on a fresh registry.
func NewPipelineMetrics() *PipelineMetrics {
	reg := prometheus.NewRegistry()
	m := &PipelineMetrics{
		registry: reg,
		JobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patentlens",
			Subsystem: "pipeline",
			Name:      "jobs_started_total",
			Help:      "Pipeline runs started, by trigger source.",
		}, []string{"source"}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patentlens",
			Subsystem: "pipeline",
			Name:      "jobs_finished_total",
			Help:      "Pipeline runs finished, by outcome (completed|failed|noop).",
		}, []string{"outcome"}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "patentlens",
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "Wall time of a full pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ChunksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "patentlens",
			Subsystem: "pipeline",
			Name:      "spec_chunks_total",
			Help:      "Specification chunks produced for extraction.",
		}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "patentlens",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Model calls, by stage (extract|merge|disclose) and status.",
		}, []string{"stage", "status"}),
		LLMLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "patentlens",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Model call latency, by stage.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"stage"}),
		MergeRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "patentlens",
			Subsystem: "pipeline",
			Name:      "merge_rounds",
			Help:      "Tournament rounds per job.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
		FeaturesTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "patentlens",
			Subsystem: "pipeline",
			Name:      "distilled_features",
			Help:      "Distilled features per job.",
			Buckets:   prometheus.LinearBuckets(0, 5, 12),
		}),
		PassagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "patentlens",
			Subsystem: "pipeline",
			Name:      "reference_passages_total",
			Help:      "Reference passages inserted into the vector index.",
		}),
	}
	reg.MustRegister(
		m.JobsStarted, m.JobsFinished, m.JobDuration, m.ChunksTotal,
		m.LLMCalls, m.LLMLatency, m.MergeRounds, m.FeaturesTotal, m.PassagesTotal,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, for callers that register extra
// collectors (process, go runtime) alongside the pipeline set.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}
