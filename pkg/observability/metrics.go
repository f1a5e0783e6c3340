// Package observability provides Prometheus metrics for chatbridge: an
// instrumented completion backend, a chat middleware, and HTTP middleware
// for the servers shipped with it.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// ChatRequestsTotal counts chat completion requests by mode
	// (sync/stream), outcome and model.
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_chat_requests_total",
			Help: "Chat completion requests",
		},
		[]string{"mode", "status", "model"},
	)

	// ChatRequestDuration records the time until a chat request returned its
	// result or stream, in seconds.
	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbridge_chat_request_duration_seconds",
			Help:    "Chat request duration",
			Buckets: LLMBuckets,
		},
		[]string{"mode", "model"},
	)

	// StreamsActive tracks backend streams that have not finished yet.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatbridge_streams_active",
			Help: "Active backend streams",
		},
	)

	// BackendRequestsTotal counts completion requests sent to backends.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_backend_requests_total",
			Help: "Backend completion requests",
		},
		[]string{"backend", "model", "status"},
	)

	// BackendLatency records backend latency in seconds until the result or
	// the stream was available.
	BackendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbridge_backend_latency_seconds",
			Help:    "Backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"backend", "model"},
	)

	// BackendTokensTotal counts tokens reported by non-streamed results, by
	// direction (input/output).
	BackendTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_backend_tokens_total",
			Help: "Token count",
		},
		[]string{"backend", "model", "direction"},
	)

	// StreamChunksTotal counts completion stream elements received.
	StreamChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_stream_chunks_total",
			Help: "Stream chunks received from backends",
		},
		[]string{"backend", "model"},
	)

	// HTTPRequestsTotal counts HTTP requests served, by method, status class
	// and path.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbridge_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "status", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		ChatRequestsTotal,
		ChatRequestDuration,
		StreamsActive,
		BackendRequestsTotal,
		BackendLatency,
		BackendTokensTotal,
		StreamChunksTotal,
		HTTPRequestsTotal,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
