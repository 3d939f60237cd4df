// metrics — коллекторы Prometheus сервиса. Регистрируются в
// prometheus.DefaultRegisterer и отдаются через promhttp на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agora"

var (
	// HTTPRequests — обработанные HTTP-запросы по шаблону маршрута и коду.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests processed, by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	// HTTPDuration — длительность HTTP-запросов.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// UpstreamRequests — вызовы GraphQL API по операции и исходу (ok|error).
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "GraphQL calls to the discussion provider, by operation and outcome.",
	}, []string{"op", "outcome"})

	// UpstreamDuration — длительность вызовов GraphQL API.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "GraphQL call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// TokenRejections — отклонённые state/session токены по причине (decryption|expired).
	TokenRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Rejected state and session tokens, by kind and reason.",
	}, []string{"kind", "reason"})

	// CacheLookups — обращения к кэшу чтений прокси (hit|miss|error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Proxy read cache lookups, by result.",
	}, []string{"result"})

	// RateLimited — запросы, отклонённые ограничителем частоты.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter.",
	})
)

// Outcome — метка исхода для UpstreamRequests.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}
