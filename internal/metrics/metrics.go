package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the safety pipeline. A single
// instance is created in main and injected where needed so tests can use
// their own registry.
type Metrics struct {
	RuleStoreFallbacks *prometheus.CounterVec
	BlockedMessages    *prometheus.CounterVec
	Escalations        *prometheus.CounterVec
	ClassifierFailures prometheus.Counter
	PipelineRuns       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RuleStoreFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_rulestore_fallback_reads_total",
			Help: "Rule store reads served from built-in defaults because the backing store failed.",
		}, []string{"subtype"}),
		BlockedMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_blocked_messages_total",
			Help: "Messages blocked, labelled by pipeline stage.",
		}, []string{"stage"}),
		Escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_escalations_total",
			Help: "Conversations flagged for human review, labelled by escalation type.",
		}, []string{"type"}),
		ClassifierFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "safety_classifier_failures_total",
			Help: "External moderation classifier calls that failed and were handled fail-open.",
		}),
		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safety_pipeline_runs_total",
			Help: "Pipeline runs, labelled by direction (input/output) and outcome.",
		}, []string{"direction", "outcome"}),
	}
}
