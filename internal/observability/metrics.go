// Package observability wires logging and metrics for the engine. Metrics
// are Prometheus collectors behind the metric seams the tool caller,
// progress tracker, and job queue expose.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smithisrealdev/aigo-engine/internal/tool"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// Metrics bundles the engine's Prometheus collectors. It implements the
// MetricsRecorder seams of the tool, progress, and queue packages.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec

	progressUpdates    *prometheus.CounterVec
	subscriberDropped  prometheus.Counter

	jobsStarted *prometheus.CounterVec
	jobsDone    *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobRetries  *prometheus.CounterVec
}

// NewMetrics creates and registers the engine collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aigo_tool_calls_total",
			Help: "Tool calls by tool, source, and outcome.",
		}, []string{"tool", "source", "outcome"}),
		toolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aigo_tool_call_duration_seconds",
			Help:    "Tool call latency by tool and source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool", "source"}),

		progressUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aigo_progress_updates_total",
			Help: "Progress updates published by task kind and status.",
		}, []string{"kind", "status"}),
		subscriberDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aigo_progress_subscriber_dropped_total",
			Help: "Updates dropped because a subscriber buffer was full.",
		}),

		jobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aigo_jobs_started_total",
			Help: "Background jobs started by kind.",
		}, []string{"kind"}),
		jobsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aigo_jobs_done_total",
			Help: "Background jobs finished by kind and terminal status.",
		}, []string{"kind", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aigo_job_duration_seconds",
			Help:    "Background job wall time by kind.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		jobRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aigo_job_retries_total",
			Help: "Job retries by kind and error class.",
		}, []string{"kind", "class"}),
	}

	m.registry.MustRegister(
		m.toolCalls, m.toolCallDuration,
		m.progressUpdates, m.subscriberDropped,
		m.jobsStarted, m.jobsDone, m.jobDuration, m.jobRetries,
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveToolCall implements tool.MetricsRecorder.
func (m *Metrics) ObserveToolCall(toolName string, source tool.Source, d time.Duration, success bool) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(toolName, string(source), outcome).Inc()
	m.toolCallDuration.WithLabelValues(toolName, string(source)).Observe(d.Seconds())
}

// RecordProgressUpdate implements progress.MetricsRecorder.
func (m *Metrics) RecordProgressUpdate(kind types.TaskKind, status types.TaskStatus) {
	m.progressUpdates.WithLabelValues(kind.String(), status.String()).Inc()
}

// RecordSubscriberDropped implements progress.MetricsRecorder.
func (m *Metrics) RecordSubscriberDropped() {
	m.subscriberDropped.Inc()
}

// RecordJobStart implements queue.MetricsRecorder.
func (m *Metrics) RecordJobStart(kind types.TaskKind) {
	m.jobsStarted.WithLabelValues(kind.String()).Inc()
}

// RecordJobDone implements queue.MetricsRecorder.
func (m *Metrics) RecordJobDone(kind types.TaskKind, status types.TaskStatus, d time.Duration) {
	m.jobsDone.WithLabelValues(kind.String(), status.String()).Inc()
	m.jobDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
}

// RecordJobRetry implements queue.MetricsRecorder.
func (m *Metrics) RecordJobRetry(kind types.TaskKind, class types.ErrorClass) {
	m.jobRetries.WithLabelValues(kind.String(), class.String()).Inc()
}
