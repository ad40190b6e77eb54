package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	DbOperationDuration *prometheus.HistogramVec

	SearchesTotal      prometheus.Counter
	ChatRepliesTotal   *prometheus.CounterVec
	GenerationFailures prometheus.Counter
	BestEffortFailures *prometheus.CounterVec
	TreeCacheLookups   *prometheus.CounterVec
}

func New(prefix string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		DbOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		),
		SearchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_searches_total",
				Help: "Total number of product searches",
			},
		),
		ChatRepliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_chat_replies_total",
				Help: "Chat replies by the path that produced them",
			},
			[]string{"source"},
		),
		GenerationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_generation_failures_total",
				Help: "Failed calls to the text generation backend",
			},
		),
		BestEffortFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_best_effort_failures_total",
				Help: "Swallowed failures of best-effort writes",
			},
			[]string{"operation"},
		),
		TreeCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_category_tree_cache_lookups_total",
				Help: "Category tree cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// TrackDBOperation returns a function that records the duration of a database operation
func (m *Metrics) TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if m == nil {
			return
		}
		m.DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

func (m *Metrics) ObserveHTTP(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HttpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearch() {
	if m == nil {
		return
	}
	m.SearchesTotal.Inc()
}

func (m *Metrics) RecordChatReply(source string) {
	if m == nil {
		return
	}
	m.ChatRepliesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordGenerationFailure() {
	if m == nil {
		return
	}
	m.GenerationFailures.Inc()
}

func (m *Metrics) RecordBestEffortFailure(operation string) {
	if m == nil {
		return
	}
	m.BestEffortFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordTreeCacheLookup(result string) {
	if m == nil {
		return
	}
	m.TreeCacheLookups.WithLabelValues(result).Inc()
}
