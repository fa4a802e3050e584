// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SectionsValidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenbot_sections_validated_total",
			Help: "Total number of section validation attempts by section and result",
		},
		[]string{"section", "result"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenbot_submissions_total",
			Help: "Total number of application submit attempts by result",
		},
		[]string{"result"},
	)

	HandOffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenbot_handoffs_total",
			Help: "Total number of review hand-offs by result",
		},
		[]string{"result"},
	)

	HandOffDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "greenbot_handoff_duration_seconds",
			Help: "Duration of review hand-off including asset transfers",
		},
	)

	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenbot_decisions_total",
			Help: "Total number of reviewer decisions by verdict and result",
		},
		[]string{"verdict", "result"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenbot_token_refreshes_total",
			Help: "Total number of credential refresh attempts by result",
		},
		[]string{"result"},
	)

	SessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "greenbot_sessions_active",
			Help: "Number of in-flight sessions per flow",
		},
		[]string{"flow"},
	)

	NotifyTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greenbot_notify_tasks_total",
			Help: "Best-effort notification tasks by name and outcome",
		},
		[]string{"task", "outcome"},
	)
)
