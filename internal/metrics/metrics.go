package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// Чат
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Messages persisted",
		},
	)

	MessagesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_deduplicated_total",
			Help: "Resent messages recognised by id and not stored twice",
		},
	)

	GroupsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_groups_created_total",
			Help: "Groups created",
		},
	)

	// WS
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections",
			Help: "Open websocket connections",
		},
	)

	WSJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_joins_total",
			Help: "Group subscriptions over websocket",
		},
		[]string{"result"}, // ok | denied | error
	)

	// Fan-out
	FanoutPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fanout_publish_errors_total",
			Help: "Failed fan-out publishes",
		},
		[]string{"kind"},
	)
)
