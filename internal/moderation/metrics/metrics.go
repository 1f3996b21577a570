package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the moderation module.
// Tracks pipeline throughput, per-action decision counts, and stage failures.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	StageFailures    *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	Overturned       prometheus.Counter
}

// New creates a new Metrics instance with all moderation module metrics registered.
func New() *Metrics {
	return &Metrics{
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arbiter_moderation_decisions_total",
			Help: "Total moderation decisions, by action taken",
		}, []string{"action"}),
		StageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "arbiter_moderation_stage_failures_total",
			Help: "Pipeline stage failures absorbed by safe defaults, by stage",
		}, []string{"stage"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbiter_moderation_pipeline_duration_seconds",
			Help:    "End-to-end duration of one moderation pipeline run",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Overturned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "arbiter_moderation_decisions_overturned_total",
			Help: "Total decisions overturned by an admin",
		}),
	}
}

// IncrementDecision records a completed decision with its action.
func (m *Metrics) IncrementDecision(action string) {
	m.DecisionsTotal.WithLabelValues(action).Inc()
}

// IncrementStageFailure records an absorbed failure in the named stage.
func (m *Metrics) IncrementStageFailure(stage string) {
	m.StageFailures.WithLabelValues(stage).Inc()
}

// ObservePipeline records the duration of one pipeline run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObservePipeline(start time.Time) {
	m.PipelineDuration.Observe(time.Since(start).Seconds())
}

// IncrementOverturned records an admin overturning a decision.
func (m *Metrics) IncrementOverturned() {
	m.Overturned.Inc()
}
