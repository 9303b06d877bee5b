package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// History retrieval (front-end side)
// =============================================================================

var (
	// HistoryRequestsTotal counts log window requests by outcome
	HistoryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncany_history_requests_total",
			Help: "Log window requests by outcome",
		},
		[]string{"outcome"}, // "sent", "suppressed", "send_failed"
	)

	// HistoryResponsesTotal counts log window responses and failures by how they were handled
	HistoryResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncany_history_responses_total",
			Help: "Log window responses by handling result",
		},
		[]string{"result"}, // "accepted", "stale", "failed"
	)
)

// =============================================================================
// Daemon
// =============================================================================

var (
	// DaemonMessagesTotal counts socket requests served by the daemon
	DaemonMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncany_daemon_messages_total",
			Help: "Socket requests handled by the daemon",
		},
		[]string{"type", "status"}, // message type | "ok", "error"
	)

	// LogWindowCacheTotal counts daemon log window cache lookups
	LogWindowCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncany_daemon_log_cache_total",
			Help: "Log window cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// ConnectedFrontends is the number of open event sockets
	ConnectedFrontends = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "syncany_daemon_connected_frontends",
			Help: "Number of front-ends connected to the events socket",
		},
	)
)
