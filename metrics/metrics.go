package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sessions opened, by mode
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medprep_quiz_sessions_started_total",
			Help: "Total number of quiz sessions started",
		},
		[]string{"mode"},
	)

	// Submissions by mode, status (success/failure) and trigger (manual/timer)
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medprep_quiz_submissions_total",
			Help: "Total number of quiz submissions",
		},
		[]string{"mode", "status", "trigger"},
	)

	EntitlementDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medprep_entitlement_denials_total",
			Help: "Total number of denied gated features",
		},
		[]string{"feature"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medprep_quiz_sessions_active",
			Help: "Current number of live quiz sessions",
		},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medprep_http_request_duration_seconds",
			Help:    "Time spent serving API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
