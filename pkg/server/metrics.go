package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tool call outcomes used as metric label values
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

// Metrics contains the Prometheus metrics of the tool server.
type Metrics struct {
	ToolCalls        *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "salesforce_reports_tool_calls_total",
			Help: "Total number of salesforce_reports tool calls by operation and outcome",
		}, []string{"operation", "outcome"}),

		ToolCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesforce_reports_tool_call_duration_seconds",
			Help:    "Time to serve a salesforce_reports tool call in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
	}
}

// RecordCall counts a call and, unless it was rejected before running,
// observes its duration.
func (m *Metrics) RecordCall(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(operation, outcome).Inc()
	if outcome != OutcomeRateLimited {
		m.ToolCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}
