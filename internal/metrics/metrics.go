package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters for the data-agent bridge. One instance per
// process, constructed against an explicit registry.
type Metrics struct {
	ToolExecutions     *prometheus.CounterVec
	WebhookAttempts    *prometheus.CounterVec
	ConversationRounds prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_tool_executions_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		WebhookAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_webhook_attempts_total",
			Help: "External agent webhook attempts by outcome.",
		}, []string{"outcome"}),
		ConversationRounds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_conversation_rounds",
			Help:    "Tool round-trips per conversation turn.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
	}
}
