package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		chatRequests,
		chatUpstreamLatencyMs,
		chatTokensIn,
		chatTokensOut,
		chatRateLimited,
		chatStreamCancels,
		chatFallbacks,
	)
}

var (
	chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Chat sends by mode and outcome (ok|fallback|rejected).",
		},
		[]string{"mode", "outcome"},
	)

	chatUpstreamLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_upstream_latency_ms",
			Help:    "Upstream completion latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 16000, 30000, 60000},
		},
		[]string{"provider", "mode", "success"},
	)

	chatTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_tokens_in",
			Help: "Sum of prompt (input) tokens per provider.",
		},
		[]string{"provider"},
	)

	chatTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_tokens_out",
			Help: "Sum of completion (output) tokens per provider.",
		},
		[]string{"provider"},
	)

	chatRateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rate_limited_total",
			Help: "Rejections by rate-limit operation (send|list).",
		},
		[]string{"op"},
	)

	chatStreamCancels = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_stream_cancels_total",
			Help: "Streams aborted by peer disconnect or timeout.",
		},
	)

	chatFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fallbacks_total",
			Help: "Safe-fallback assistant turns persisted, by mode.",
		},
		[]string{"mode"},
	)
)

func ObserveRequest(mode, outcome string) {
	chatRequests.WithLabelValues(norm(mode), norm(outcome)).Inc()
}

func ObserveUpstream(provider, mode string, tokensIn, tokensOut int, latencyMs int64, success bool) {
	chatUpstreamLatencyMs.WithLabelValues(norm(provider), norm(mode), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
	chatTokensIn.WithLabelValues(norm(provider)).Add(float64(tokensIn))
	chatTokensOut.WithLabelValues(norm(provider)).Add(float64(tokensOut))
}

func RateLimited(op string) {
	chatRateLimited.WithLabelValues(norm(op)).Inc()
}

func StreamCancelled() {
	chatStreamCancels.Inc()
}

func Fallback(mode string) {
	chatFallbacks.WithLabelValues(norm(mode)).Inc()
}

func norm(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
