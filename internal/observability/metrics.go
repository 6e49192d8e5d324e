package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Request-protection metrics
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter, by policy namespace and cause",
		},
		[]string{"namespace", "cause"},
	)

	CSRFRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csrf_rejections_total",
			Help: "State-changing requests rejected by CSRF validation, by reason",
		},
		[]string{"reason"},
	)

	// Insight pipeline metrics
	InsightJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_jobs_total",
			Help: "Insight generation jobs processed by the worker, by outcome",
		},
		[]string{"outcome"},
	)

	InsightJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insight_job_duration_seconds",
			Help:    "End-to-end insight generation latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Notification stream metrics
	NotificationConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_connections_active",
			Help: "Number of active websocket notification connections",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications pushed to clients",
		},
		[]string{"type"},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)
