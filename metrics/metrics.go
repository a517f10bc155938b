package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"status", "route"})
	HttpRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	CompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "completions_total",
		Help: "Total number of completion attempts by provider and outcome",
	}, []string{"provider", "outcome"})
	CompletionTokens = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "completion_tokens",
		Help:    "Total tokens consumed per completion",
		Buckets: prometheus.ExponentialBuckets(16, 2, 12),
	}, []string{"provider"})
	CompletionDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "completion_duration_seconds",
		Help:    "Wall-clock duration of provider completion calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	QuotaRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quota_rejections_total",
		Help: "Completion attempts rejected before reaching the provider",
	}, []string{"scope"})
	LedgerWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_write_failures_total",
		Help: "Usage ledger inserts that failed after all retries",
	})
	QuotaCheckFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quota_check_failures_total",
		Help: "Quota guard ledger reads that failed (guard fails open)",
	})
)
