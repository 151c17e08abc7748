package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "seoaudit"

	stageLabel    = "stage"
	outcomeLabel  = "outcome"
	degradedLabel = "degraded"
)

// Metrics records stage outcomes and run results.
type Metrics struct {
	registry      *prometheus.Registry
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_total",
				Help:      "Number of executed audit stages partitioned by stage and outcome.",
			},
			[]string{stageLabel, outcomeLabel},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each audit stage, including retries.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{stageLabel},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Number of finished audit runs partitioned by whether the report is degraded.",
			},
			[]string{degradedLabel},
		),
	}

	m.registry.MustRegister(
		m.stageTotal,
		m.stageDuration,
		m.runsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// StageFinished implements pipeline.Observer.
func (m *Metrics) StageFinished(stage string, outcome pipeline.Outcome, d time.Duration) {
	m.stageTotal.With(prometheus.Labels{
		stageLabel:   stage,
		outcomeLabel: string(outcome),
	}).Inc()
	if outcome != pipeline.OutcomeSkipped {
		m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// RunFinished counts a completed run.
func (m *Metrics) RunFinished(rec *model.RunRecord) {
	m.runsTotal.WithLabelValues(strconv.FormatBool(rec.Degraded())).Inc()
}

// Registry returns the private registry so other collectors, such as the
// HTTP middleware, can be added to it.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
