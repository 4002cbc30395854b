package metrics

import "github.com/prometheus/client_golang/prometheus"

// Completion and entitlement Prometheus metrics.
var (
	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "superbrain",
			Name:      "completion_requests_total",
			Help:      "Total number of completion requests sent upstream",
		},
		[]string{"model", "status"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "superbrain",
			Name:      "completion_request_duration_seconds",
			Help:      "Completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	CompletionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "superbrain",
			Name:      "completion_tokens_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"model", "type"}, // type: "prompt" / "completion"
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "superbrain",
			Name:      "quota_rejections_total",
			Help:      "Requests refused because the free allowance was spent",
		},
	)

	UnlockAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "superbrain",
			Name:      "unlock_attempts_total",
			Help:      "Premium unlock attempts by result",
		},
		[]string{"result"}, // "ok" / "rejected"
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "superbrain",
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory",
		},
	)
)

var completionMetricsRegistered bool

// RegisterCompletionMetrics registers Prometheus completion metrics. Must be called once from main.
func RegisterCompletionMetrics() {
	if completionMetricsRegistered {
		return
	}
	prometheus.MustRegister(CompletionRequestsTotal)
	prometheus.MustRegister(CompletionRequestDuration)
	prometheus.MustRegister(CompletionTokensTotal)
	prometheus.MustRegister(QuotaRejectionsTotal)
	prometheus.MustRegister(UnlockAttemptsTotal)
	prometheus.MustRegister(ActiveSessions)
	completionMetricsRegistered = true
}
