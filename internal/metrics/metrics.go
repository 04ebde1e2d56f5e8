// Package metrics exposes prometheus collectors for requests, tool calls and chain calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label names.
const (
	Method    = "method"
	Tool      = "tool"
	Status    = "status"
	Operation = "operation"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	// RequestsTotal counts dispatched JSON-RPC requests by method.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethmcp_requests_total",
			Help: "Total number of JSON-RPC requests dispatched",
		},
		[]string{Method},
	)

	// DroppedLinesTotal counts input lines that were not valid requests.
	DroppedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ethmcp_dropped_lines_total",
			Help: "Total number of unparsable input lines dropped",
		},
	)

	// ToolCallsTotal counts tool executions by tool and outcome.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethmcp_tool_calls_total",
			Help: "Total number of tool executions",
		},
		[]string{Tool, Status},
	)

	// ToolCallDuration observes tool execution latency.
	ToolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ethmcp_tool_call_duration_seconds",
			Help:    "Tool execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{Tool},
	)

	// ChainCallsTotal counts JSON-RPC calls made to the chain endpoint.
	ChainCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethmcp_chain_calls_total",
			Help: "Total number of calls made to the chain RPC endpoint",
		},
		[]string{Operation, Status},
	)
)

//nolint:gochecknoinits // collectors register with the default registry
func init() {
	_ = prometheus.Register(RequestsTotal)
	_ = prometheus.Register(DroppedLinesTotal)
	_ = prometheus.Register(ToolCallsTotal)
	_ = prometheus.Register(ToolCallDuration)
	_ = prometheus.Register(ChainCallsTotal)
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// ObserveToolCall records one tool execution.
func ObserveToolCall(tool string, started time.Time, err error) {
	ToolCallsTotal.WithLabelValues(tool, status(err)).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(time.Since(started).Seconds())
}

// ObserveChainCall records one chain RPC round-trip.
func ObserveChainCall(operation string, err error) {
	ChainCallsTotal.WithLabelValues(operation, status(err)).Inc()
}
