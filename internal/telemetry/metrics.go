package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusOK    = "ok"
	statusError = "error"
)

var (
	toolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logicapp_mcp_tool_calls_total",
			Help: "Tool calls by family, tool and outcome",
		},
		[]string{"family", "tool", "status"},
	)

	toolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logicapp_mcp_tool_call_duration_seconds",
			Help:    "Duration of tool calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"family", "tool"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logicapp_mcp_http_requests_total",
			Help: "Facade HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// HTTPRequest counts one facade request.
func HTTPRequest(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
